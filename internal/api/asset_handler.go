package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// AssetStore is the slice of the store the asset handler needs.
type AssetStore interface {
	ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error)
	GetAssetDetail(ctx context.Context, hubID string) (*model.AssetDetail, error)
	UpdateAsset(ctx context.Context, hubID string, patch store.AssetPatch) (*model.Asset, error)
	InvalidateSilo(ctx context.Context, sellerID, tradeID int64) error
}

// EventPublisher publishes canonical domain events for API mutations.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, sellerID, tradeID int64, payload any) error
}

// AssetHandler serves the asset list, the hub-join detail, and status/FC
// stage patches.
type AssetHandler struct {
	logger       *zap.Logger
	store        AssetStore
	events       EventPublisher
	invalidators []ReportInvalidator
}

func NewAssetHandler(logger *zap.Logger, st AssetStore, events EventPublisher, invalidators ...ReportInvalidator) *AssetHandler {
	return &AssetHandler{logger: logger, store: st, events: events, invalidators: invalidators}
}

func (h *AssetHandler) List(c *fiber.Ctx) error {
	sellerID, err := queryInt64(c, "sellerId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "sellerId is required")
	}
	tradeID, err := queryInt64(c, "tradeId")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "tradeId is required")
	}

	assets, err := h.store.ListAssets(c.Context(), sellerID, tradeID)
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(assets)
}

func (h *AssetHandler) Get(c *fiber.Ctx) error {
	detail, err := h.store.GetAssetDetail(c.Context(), c.Params("hubId"))
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(detail)
}

func (h *AssetHandler) Patch(c *fiber.Ctx) error {
	hubID := c.Params("hubId")

	var req AssetPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	asset, err := h.store.UpdateAsset(c.Context(), hubID, store.AssetPatch{
		Status:  req.Status,
		FCStage: req.FCStage,
	})
	if err != nil {
		return storeErr(c, err)
	}

	if err := h.store.InvalidateSilo(c.Context(), asset.SellerID, asset.TradeID); err != nil {
		h.logger.Warn("api.asset_invalidate_failed", zap.String("hub_id", hubID), zap.Error(err))
	}
	for _, inv := range h.invalidators {
		inv.Invalidate(asset.SellerID, asset.TradeID)
	}

	if err := h.events.PublishEvent(c.Context(), model.EventAssetUpdated, asset.SellerID, asset.TradeID, asset); err != nil {
		h.logger.Warn("api.asset_event_failed", zap.String("hub_id", hubID), zap.Error(err))
	}

	return c.JSON(asset)
}
