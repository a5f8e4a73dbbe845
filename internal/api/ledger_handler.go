package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/auth"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// LedgerStore is the slice of the store the GL handler needs.
type LedgerStore interface {
	GetAsset(ctx context.Context, hubID string) (*model.Asset, error)
	ListLedgerBySilo(ctx context.Context, sellerID, tradeID int64) ([]model.LedgerEntry, error)
	ListLedgerByHub(ctx context.Context, hubID string) ([]model.LedgerEntry, error)
	PostLedgerEntry(ctx context.Context, e *model.LedgerEntry) error
	ReverseLedgerEntry(ctx context.Context, id int64, reason, postedBy string) (*model.LedgerEntry, error)
}

// LedgerHandler serves the general ledger. Entries are immutable; the only
// correction path is a compensating reversal.
type LedgerHandler struct {
	logger *zap.Logger
	store  LedgerStore
	events EventPublisher
}

func NewLedgerHandler(logger *zap.Logger, st LedgerStore, events EventPublisher) *LedgerHandler {
	return &LedgerHandler{logger: logger, store: st, events: events}
}

// List handles GET /ledger?hubId= or ?sellerId=&tradeId=.
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	if hubID := c.Query("hubId"); hubID != "" {
		entries, err := h.store.ListLedgerByHub(c.Context(), hubID)
		if err != nil {
			return storeErr(c, err)
		}
		return c.JSON(entries)
	}

	sellerID, err := queryInt64(c, "sellerId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "hubId or sellerId+tradeId is required")
	}
	tradeID, err := queryInt64(c, "tradeId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "tradeId is required")
	}
	entries, err := h.store.ListLedgerBySilo(c.Context(), sellerID, tradeID)
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(entries)
}

// Post handles POST /ledger.
func (h *LedgerHandler) Post(c *fiber.Ctx) error {
	var req LedgerPostRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	asset, err := h.store.GetAsset(c.Context(), req.HubID)
	if err != nil {
		return storeErr(c, err)
	}

	entry := &model.LedgerEntry{
		HubID:         asset.HubID,
		TradeID:       asset.TradeID,
		Account:       req.Account,
		SubAccount:    req.SubAccount,
		Debit:         req.Debit,
		Credit:        req.Credit,
		Memo:          req.Memo,
		EffectiveDate: req.EffectiveDate,
	}
	if user, ok := c.Locals(auth.LocalUser).(*model.AuthUser); ok {
		entry.PostedBy = user.Username
	}

	if err := h.store.PostLedgerEntry(c.Context(), entry); err != nil {
		return storeErr(c, err)
	}

	if err := h.events.PublishEvent(c.Context(), model.EventLedgerPosted, asset.SellerID, asset.TradeID, entry); err != nil {
		h.logger.Warn("api.ledger_event_failed", zap.Int64("entry_id", entry.ID), zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

// Reverse handles POST /ledger/:id/reverse.
func (h *LedgerHandler) Reverse(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid ledger entry id")
	}

	var req LedgerReverseRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	postedBy := ""
	if user, ok := c.Locals(auth.LocalUser).(*model.AuthUser); ok {
		postedBy = user.Username
	}

	reversal, err := h.store.ReverseLedgerEntry(c.Context(), int64(id), req.Reason, postedBy)
	if err != nil {
		return storeErr(c, err)
	}

	if asset, err := h.store.GetAsset(c.Context(), reversal.HubID); err == nil {
		if err := h.events.PublishEvent(c.Context(), model.EventLedgerReversed, asset.SellerID, asset.TradeID, reversal); err != nil {
			h.logger.Warn("api.ledger_event_failed", zap.Int64("entry_id", reversal.ID), zap.Error(err))
		}
	}

	h.logger.Info("api.ledger_reversed",
		zap.Int64("original_id", int64(id)),
		zap.String("reason", req.Reason))
	return c.Status(fiber.StatusCreated).JSON(reversal)
}
