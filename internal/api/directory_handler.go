package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// DirectoryStore is the slice of the store the CRM handler needs. All four
// directories share the soft-delete convention (DELETE sets Active=false).
type DirectoryStore interface {
	ListBrokers(ctx context.Context) ([]model.Broker, error)
	CreateBroker(ctx context.Context, b *model.Broker) error
	UpdateBroker(ctx context.Context, b *model.Broker) error
	DeactivateBroker(ctx context.Context, id int64) error
	ListInvestors(ctx context.Context) ([]model.Investor, error)
	CreateInvestor(ctx context.Context, i *model.Investor) error
	UpdateInvestor(ctx context.Context, i *model.Investor) error
	DeactivateInvestor(ctx context.Context, id int64) error
	ListLegalContacts(ctx context.Context) ([]model.LegalContact, error)
	CreateLegalContact(ctx context.Context, l *model.LegalContact) error
	UpdateLegalContact(ctx context.Context, l *model.LegalContact) error
	DeactivateLegalContact(ctx context.Context, id int64) error
	ListTradingPartners(ctx context.Context) ([]model.TradingPartner, error)
	CreateTradingPartner(ctx context.Context, p *model.TradingPartner) error
	UpdateTradingPartner(ctx context.Context, p *model.TradingPartner) error
	DeactivateTradingPartner(ctx context.Context, id int64) error
}

// DirectoryHandler serves the CRM contact directories.
type DirectoryHandler struct {
	logger *zap.Logger
	store  DirectoryStore
}

func NewDirectoryHandler(logger *zap.Logger, st DirectoryStore) *DirectoryHandler {
	return &DirectoryHandler{logger: logger, store: st}
}

// --- brokers ---

func (h *DirectoryHandler) ListBrokers(c *fiber.Ctx) error {
	rows, err := h.store.ListBrokers(c.Context())
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(rows)
}

func (h *DirectoryHandler) CreateBroker(c *fiber.Ctx) error {
	var req BrokerRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	b := &model.Broker{Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, States: req.States, Active: true}
	if err := h.store.CreateBroker(c.Context(), b); err != nil {
		return storeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (h *DirectoryHandler) UpdateBroker(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	var req BrokerRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	b := &model.Broker{ID: int64(id), Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, States: req.States, Active: true}
	if err := h.store.UpdateBroker(c.Context(), b); err != nil {
		return storeErr(c, err)
	}
	return c.JSON(b)
}

func (h *DirectoryHandler) DeleteBroker(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	if err := h.store.DeactivateBroker(c.Context(), int64(id)); err != nil {
		return storeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- investors ---

func (h *DirectoryHandler) ListInvestors(c *fiber.Ctx) error {
	rows, err := h.store.ListInvestors(c.Context())
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(rows)
}

func (h *DirectoryHandler) CreateInvestor(c *fiber.Ctx) error {
	var req InvestorRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	i := &model.Investor{Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, Active: true}
	if err := h.store.CreateInvestor(c.Context(), i); err != nil {
		return storeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(i)
}

func (h *DirectoryHandler) UpdateInvestor(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	var req InvestorRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	i := &model.Investor{ID: int64(id), Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, Active: true}
	if err := h.store.UpdateInvestor(c.Context(), i); err != nil {
		return storeErr(c, err)
	}
	return c.JSON(i)
}

func (h *DirectoryHandler) DeleteInvestor(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	if err := h.store.DeactivateInvestor(c.Context(), int64(id)); err != nil {
		return storeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- legal contacts ---

func (h *DirectoryHandler) ListLegal(c *fiber.Ctx) error {
	rows, err := h.store.ListLegalContacts(c.Context())
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(rows)
}

func (h *DirectoryHandler) CreateLegal(c *fiber.Ctx) error {
	var req LegalContactRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	l := &model.LegalContact{Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, State: req.State, Specialty: req.Specialty, Active: true}
	if err := h.store.CreateLegalContact(c.Context(), l); err != nil {
		return storeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(l)
}

func (h *DirectoryHandler) UpdateLegal(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	var req LegalContactRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	l := &model.LegalContact{ID: int64(id), Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, State: req.State, Specialty: req.Specialty, Active: true}
	if err := h.store.UpdateLegalContact(c.Context(), l); err != nil {
		return storeErr(c, err)
	}
	return c.JSON(l)
}

func (h *DirectoryHandler) DeleteLegal(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	if err := h.store.DeactivateLegalContact(c.Context(), int64(id)); err != nil {
		return storeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- trading partners ---

func (h *DirectoryHandler) ListPartners(c *fiber.Ctx) error {
	rows, err := h.store.ListTradingPartners(c.Context())
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(rows)
}

func (h *DirectoryHandler) CreatePartner(c *fiber.Ctx) error {
	var req TradingPartnerRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	p := &model.TradingPartner{Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, Side: req.Side, Active: true}
	if err := h.store.CreateTradingPartner(c.Context(), p); err != nil {
		return storeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *DirectoryHandler) UpdatePartner(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	var req TradingPartnerRequest
	if err := parseBody(c, &req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	p := &model.TradingPartner{ID: int64(id), Name: req.Name, Firm: req.Firm, Email: req.Email, Phone: req.Phone, Side: req.Side, Active: true}
	if err := h.store.UpdateTradingPartner(c.Context(), p); err != nil {
		return storeErr(c, err)
	}
	return c.JSON(p)
}

func (h *DirectoryHandler) DeletePartner(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid id")
	}
	if err := h.store.DeactivateTradingPartner(c.Context(), int64(id)); err != nil {
		return storeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
