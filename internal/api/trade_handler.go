package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// TradeStore is the slice of the store the seller/trade handler needs.
type TradeStore interface {
	ListSellers(ctx context.Context) ([]model.Seller, error)
	GetSeller(ctx context.Context, id int64) (*model.Seller, error)
	CreateSeller(ctx context.Context, s *model.Seller) error
	ListTrades(ctx context.Context, sellerID int64) ([]model.Trade, error)
	GetTrade(ctx context.Context, id int64) (*model.Trade, error)
	CreateTrade(ctx context.Context, t *model.Trade) error
	UpdateTrade(ctx context.Context, id int64, patch store.TradePatch) (*model.Trade, error)
	GetTradeAssumptions(ctx context.Context, tradeID int64) (*model.TradeAssumptions, error)
	PutTradeAssumptions(ctx context.Context, a *model.TradeAssumptions) error
	ListTradeDates(ctx context.Context, tradeID int64) ([]model.TradeDate, error)
	CreateTradeDate(ctx context.Context, d *model.TradeDate) error
	CompleteTradeDate(ctx context.Context, tradeID, dateID int64, completed *time.Time) (*model.TradeDate, error)
	DeleteTradeDate(ctx context.Context, tradeID, dateID int64) error
}

// ReportInvalidator drops cached reports for a silo after a mutation.
type ReportInvalidator interface {
	Invalidate(sellerID, tradeID int64)
}

// TradeHandler serves the seller/trade CRUD surface.
type TradeHandler struct {
	logger       *zap.Logger
	store        TradeStore
	invalidators []ReportInvalidator
}

func NewTradeHandler(logger *zap.Logger, st TradeStore, invalidators ...ReportInvalidator) *TradeHandler {
	return &TradeHandler{logger: logger, store: st, invalidators: invalidators}
}

func (h *TradeHandler) invalidate(sellerID, tradeID int64) {
	for _, inv := range h.invalidators {
		inv.Invalidate(sellerID, tradeID)
	}
}

func (h *TradeHandler) ListSellers(c *fiber.Ctx) error {
	sellers, err := h.store.ListSellers(c.Context())
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(sellers)
}

func (h *TradeHandler) GetSeller(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid seller id")
	}
	seller, err := h.store.GetSeller(c.Context(), int64(id))
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(seller)
}

func (h *TradeHandler) CreateSeller(c *fiber.Ctx) error {
	var req SellerCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	seller := &model.Seller{Name: req.Name, ShortCode: req.ShortCode, Active: true}
	if err := h.store.CreateSeller(c.Context(), seller); err != nil {
		return storeErr(c, err)
	}

	h.logger.Info("api.seller_created",
		zap.Int64("seller_id", seller.ID),
		zap.String("short_code", seller.ShortCode))
	return c.Status(fiber.StatusCreated).JSON(seller)
}

func (h *TradeHandler) ListTrades(c *fiber.Ctx) error {
	sellerID, err := queryInt64(c, "sellerId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "sellerId is required")
	}
	trades, err := h.store.ListTrades(c.Context(), sellerID)
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(trades)
}

func (h *TradeHandler) GetTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}
	trade, err := h.store.GetTrade(c.Context(), int64(id))
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(trade)
}

func (h *TradeHandler) CreateTrade(c *fiber.Ctx) error {
	var req TradeCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	status := req.Status
	if status == "" {
		status = model.TradeStatusPipeline
	}
	trade := &model.Trade{
		SellerID:       req.SellerID,
		Name:           req.Name,
		Status:         status,
		BidDate:        req.BidDate,
		SettlementDate: req.SettlementDate,
	}
	if err := h.store.CreateTrade(c.Context(), trade); err != nil {
		return storeErr(c, err)
	}

	h.logger.Info("api.trade_created",
		zap.Int64("trade_id", trade.ID),
		zap.Int64("seller_id", trade.SellerID))
	return c.Status(fiber.StatusCreated).JSON(trade)
}

func (h *TradeHandler) PatchTrade(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}

	var req TradePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	trade, err := h.store.UpdateTrade(c.Context(), int64(id), store.TradePatch{
		Status:         req.Status,
		BidDate:        req.BidDate,
		SettlementDate: req.SettlementDate,
	})
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(trade)
}

func (h *TradeHandler) GetAssumptions(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}
	a, err := h.store.GetTradeAssumptions(c.Context(), int64(id))
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(a)
}

// PutAssumptions replaces the trade's assumptions and drops every cached
// cash-flow report that depended on them.
func (h *TradeHandler) PutAssumptions(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}

	var req AssumptionsPutRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	trade, err := h.store.GetTrade(c.Context(), int64(id))
	if err != nil {
		return storeErr(c, err)
	}

	a := &model.TradeAssumptions{
		TradeID:             trade.ID,
		DiscountRate:        req.DiscountRate,
		ServicingFeeMonthly: req.ServicingFeeMonthly,
		LegalFeeBudget:      req.LegalFeeBudget,
		TrashoutCost:        req.TrashoutCost,
		RenovationBudget:    req.RenovationBudget,
		MarketingCost:       req.MarketingCost,
		SaleCostPct:         req.SaleCostPct,
	}
	if err := h.store.PutTradeAssumptions(c.Context(), a); err != nil {
		return storeErr(c, err)
	}

	h.invalidate(trade.SellerID, trade.ID)
	return c.JSON(a)
}

func (h *TradeHandler) ListDates(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}
	dates, err := h.store.ListTradeDates(c.Context(), int64(id))
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(dates)
}

func (h *TradeHandler) CreateDate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}

	var req TradeDateCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	d := &model.TradeDate{TradeID: int64(id), Label: req.Label, Due: req.Due}
	if err := h.store.CreateTradeDate(c.Context(), d); err != nil {
		return storeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *TradeHandler) PatchDate(c *fiber.Ctx) error {
	tradeID, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}
	dateID, err := c.ParamsInt("dateId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid date id")
	}

	var req TradeDatePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	var completed *time.Time
	if req.Completed {
		now := time.Now().UTC()
		completed = &now
	}
	d, err := h.store.CompleteTradeDate(c.Context(), int64(tradeID), int64(dateID), completed)
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(d)
}

func (h *TradeHandler) DeleteDate(c *fiber.Ctx) error {
	tradeID, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid trade id")
	}
	dateID, err := c.ParamsInt("dateId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid date id")
	}
	if err := h.store.DeleteTradeDate(c.Context(), int64(tradeID), int64(dateID)); err != nil {
		return storeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
