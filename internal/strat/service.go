package strat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/flight"
	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// DataStore is the slice of the store the strat service reads through.
type DataStore interface {
	ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error)
	GetJSON(ctx context.Context, key string, dest any) error
	SetSiloJSON(ctx context.Context, sellerID, tradeID int64, key string, value any, ttl time.Duration) error
}

// Service computes silo stratification reports with a per-(silo, dimension)
// cache. Concurrent identical computes share a flight; a newer compute for
// the same key cancels an older in-progress one.
type Service struct {
	logger   *zap.Logger
	store    DataStore
	cacheTTL time.Duration
	reports  *flight.Group[*model.StratReport]
}

func NewService(logger *zap.Logger, st DataStore, cacheTTL time.Duration) *Service {
	return &Service{
		logger:   logger,
		store:    st,
		cacheTTL: cacheTTL,
		reports: flight.NewGroup[*model.StratReport](func(key string) {
			metrics.IncSuperseded("strat")
		}),
	}
}

// Report returns the stratification for one silo and dimension, computing
// and caching on miss.
func (s *Service) Report(ctx context.Context, sellerID, tradeID int64, dimension string) (*model.StratReport, error) {
	key := store.SiloKey("strat_"+dimension, sellerID, tradeID)

	var cached model.StratReport
	if err := s.store.GetJSON(ctx, key, &cached); err == nil {
		metrics.IncCacheAccess("strat", "hit")
		return &cached, nil
	}
	metrics.IncCacheAccess("strat", "miss")

	return s.reports.Do(ctx, key, func(fctx context.Context) (*model.StratReport, error) {
		start := time.Now()

		assets, err := s.store.ListAssets(fctx, sellerID, tradeID)
		if err != nil {
			return nil, err
		}
		report, err := Compute(sellerID, tradeID, dimension, assets)
		if err != nil {
			return nil, err
		}

		if err := s.store.SetSiloJSON(fctx, sellerID, tradeID, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("strat.cache_failed",
				zap.Int64("seller_id", sellerID),
				zap.Int64("trade_id", tradeID),
				zap.Error(err))
		}
		metrics.ObserveDuration(metrics.StratComputeDuration, start, dimension)
		return report, nil
	})
}

// Invalidate aborts in-progress report flights for the silo. Called after
// asset mutations alongside the store's cache invalidation.
func (s *Service) Invalidate(sellerID, tradeID int64) {
	for _, d := range model.StratDimensions {
		s.reports.Cancel(store.SiloKey("strat_"+d, sellerID, tradeID))
	}
}
