package servicerfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// DataStore is the slice of the store the feed writes through.
type DataStore interface {
	GetAsset(ctx context.Context, hubID string) (*model.Asset, error)
	GetAssetByLoanNumber(ctx context.Context, loanNumber string) (*model.Asset, error)
	UpdateAsset(ctx context.Context, hubID string, patch store.AssetPatch) (*model.Asset, error)
	RecordServicerEvent(ctx context.Context, hubID string, ev model.ServicerEvent) error
}

// EventPublisher publishes canonical events for applied feed frames.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, sellerID, tradeID int64, payload any) error
}

// fcStagePayload is the FC_STAGE frame body.
type fcStagePayload struct {
	Stage string `json:"stage"`
}

var validFCStages = map[string]struct{}{
	model.FCStageNone:          {},
	model.FCStageReferred:      {},
	model.FCStageJudgment:      {},
	model.FCStageSaleScheduled: {},
	model.FCStageSold:          {},
}

// Applier maps servicer feed frames onto the store. Unknown loans are
// counted and skipped, never fatal.
type Applier struct {
	logger *zap.Logger
	store  DataStore
	events EventPublisher
}

func NewApplier(logger *zap.Logger, st DataStore, events EventPublisher) *Applier {
	return &Applier{logger: logger, store: st, events: events}
}

// Apply records one feed event against its asset. A frame for a loan the
// platform does not hold returns nil after logging.
func (a *Applier) Apply(ctx context.Context, ev model.ServicerEvent) error {
	asset, err := a.resolveAsset(ctx, ev)
	if err != nil {
		a.logger.Warn("servicerfeed.unknown_loan",
			zap.String("loan_number", ev.LoanNumber),
			zap.String("hub_id", ev.HubID),
			zap.String("type", ev.Type))
		metrics.IncFeedEvent(ev.Type, "unknown_loan")
		return nil
	}

	if err := a.store.RecordServicerEvent(ctx, asset.HubID, ev); err != nil {
		metrics.IncFeedEvent(ev.Type, "error")
		return fmt.Errorf("record servicer event for %s: %w", asset.HubID, err)
	}

	if ev.Type == model.ServicerEventFCStage {
		if err := a.applyFCStage(ctx, asset.HubID, ev); err != nil {
			metrics.IncFeedEvent(ev.Type, "error")
			return err
		}
	}

	if err := a.events.PublishEvent(ctx, model.EventServicerApplied, asset.SellerID, asset.TradeID, ev); err != nil {
		a.logger.Warn("servicerfeed.event_failed",
			zap.String("hub_id", asset.HubID),
			zap.Error(err))
	}

	metrics.IncFeedEvent(ev.Type, "applied")
	a.logger.Debug("servicerfeed.applied",
		zap.String("hub_id", asset.HubID),
		zap.String("type", ev.Type))
	return nil
}

func (a *Applier) resolveAsset(ctx context.Context, ev model.ServicerEvent) (*model.Asset, error) {
	if ev.HubID != "" {
		return a.store.GetAsset(ctx, ev.HubID)
	}
	return a.store.GetAssetByLoanNumber(ctx, ev.LoanNumber)
}

func (a *Applier) applyFCStage(ctx context.Context, hubID string, ev model.ServicerEvent) error {
	var p fcStagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("fc_stage payload for %s: %w", hubID, err)
	}
	if _, ok := validFCStages[p.Stage]; !ok {
		return fmt.Errorf("fc_stage payload for %s: unknown stage %q", hubID, p.Stage)
	}
	_, err := a.store.UpdateAsset(ctx, hubID, store.AssetPatch{FCStage: &p.Stage})
	return err
}
