package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/auth"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// ValuationStore is the slice of the store the valuation handler needs.
type ValuationStore interface {
	GetAsset(ctx context.Context, hubID string) (*model.Asset, error)
	ListValuationsByHub(ctx context.Context, hubID string) ([]model.Valuation, error)
	ListValuationsBySilo(ctx context.Context, sellerID, tradeID int64) ([]model.Valuation, error)
	CreateValuation(ctx context.Context, v *model.Valuation) error
	DeleteValuation(ctx context.Context, id int64) error
}

// ValuationOrderer places a vendor order and records the pending row.
type ValuationOrderer interface {
	OrderValuation(ctx context.Context, hubID, kind, orderedBy string) (*model.Valuation, error)
}

// ValuationHandler serves valuations plus the outbound vendor order.
type ValuationHandler struct {
	logger       *zap.Logger
	store        ValuationStore
	vendor       ValuationOrderer
	events       EventPublisher
	invalidators []ReportInvalidator
}

func NewValuationHandler(logger *zap.Logger, st ValuationStore, vendor ValuationOrderer, events EventPublisher, invalidators ...ReportInvalidator) *ValuationHandler {
	return &ValuationHandler{logger: logger, store: st, vendor: vendor, events: events, invalidators: invalidators}
}

// List handles GET /valuations?hubId= or ?sellerId=&tradeId=.
func (h *ValuationHandler) List(c *fiber.Ctx) error {
	if hubID := c.Query("hubId"); hubID != "" {
		vals, err := h.store.ListValuationsByHub(c.Context(), hubID)
		if err != nil {
			return storeErr(c, err)
		}
		return c.JSON(vals)
	}

	sellerID, err := queryInt64(c, "sellerId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "hubId or sellerId+tradeId is required")
	}
	tradeID, err := queryInt64(c, "tradeId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "tradeId is required")
	}
	vals, err := h.store.ListValuationsBySilo(c.Context(), sellerID, tradeID)
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(vals)
}

// Create handles POST /valuations: an internally-entered or vendor-returned
// completed valuation. A new valuation changes expected sale proceeds, so
// cached cash flows for the silo are dropped.
func (h *ValuationHandler) Create(c *fiber.Ctx) error {
	var req ValuationCreateRequest
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

	source := req.Source
	if source == "" {
		source = "INTERNAL"
	}
	v := &model.Valuation{
		HubID:         asset.HubID,
		Kind:          strings.ToUpper(req.Kind),
		Value:         req.Value,
		AsIsValue:     req.AsIsValue,
		ARVValue:      req.ARVValue,
		EffectiveDate: req.EffectiveDate,
		Source:        source,
	}
	if user, ok := c.Locals(auth.LocalUser).(*model.AuthUser); ok {
		v.OrderedBy = user.Username
	}

	if err := h.store.CreateValuation(c.Context(), v); err != nil {
		return storeErr(c, err)
	}

	for _, inv := range h.invalidators {
		inv.Invalidate(asset.SellerID, asset.TradeID)
	}
	if err := h.events.PublishEvent(c.Context(), model.EventValuationRecorded, asset.SellerID, asset.TradeID, v); err != nil {
		h.logger.Warn("api.valuation_event_failed", zap.String("hub_id", v.HubID), zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(v)
}

// Delete handles DELETE /valuations/:id.
func (h *ValuationHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "invalid valuation id")
	}
	if err := h.store.DeleteValuation(c.Context(), int64(id)); err != nil {
		return storeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Order handles POST /valuations/order: an outbound BPO/appraisal order to
// the configured vendor. The vendor client records a pending valuation row.
func (h *ValuationHandler) Order(c *fiber.Ctx) error {
	if h.vendor == nil {
		return errJSON(c, fiber.StatusServiceUnavailable, "no valuation vendor configured")
	}

	var req ValuationOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	orderedBy := ""
	if user, ok := c.Locals(auth.LocalUser).(*model.AuthUser); ok {
		orderedBy = user.Username
	}

	v, err := h.vendor.OrderValuation(c.Context(), req.HubID, req.Kind, orderedBy)
	if err != nil {
		h.logger.Error("api.valuation_order_failed",
			zap.String("hub_id", req.HubID),
			zap.String("kind", req.Kind),
			zap.Error(err))
		return errJSON(c, fiber.StatusBadGateway, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(v)
}
