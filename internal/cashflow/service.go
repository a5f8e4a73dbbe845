package cashflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/flight"
	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// DataStore is the slice of the store the cash-flow service reads through.
type DataStore interface {
	GetTrade(ctx context.Context, id int64) (*model.Trade, error)
	GetTradeAssumptions(ctx context.Context, tradeID int64) (*model.TradeAssumptions, error)
	ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error)
	GetAssetDetail(ctx context.Context, hubID string) (*model.AssetDetail, error)
	GetJSON(ctx context.Context, key string, dest any) error
	SetSiloJSON(ctx context.Context, sellerID, tradeID int64, key string, value any, ttl time.Duration) error
}

// Service runs projections against store data. Trade-level aggregates are
// cached per silo; concurrent computes for the same trade share a flight and
// a newer request cancels an older in-progress one.
type Service struct {
	logger   *zap.Logger
	store    DataStore
	policy   *PolicyProvider
	cacheTTL time.Duration
	trades   *flight.Group[*model.TradeCashFlow]
}

func NewService(logger *zap.Logger, st DataStore, policy *PolicyProvider, cacheTTL time.Duration) *Service {
	return &Service{
		logger:   logger,
		store:    st,
		policy:   policy,
		cacheTTL: cacheTTL,
		trades: flight.NewGroup[*model.TradeCashFlow](func(key string) {
			metrics.IncSuperseded("cashflow")
		}),
	}
}

// normalizePath maps the lowercase ?outcome= query value to a model path.
func normalizePath(param string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "reo":
		return model.OutcomePathREO, nil
	case "foreclosure":
		return model.OutcomePathForeclosure, nil
	case "dil":
		return model.OutcomePathDIL, nil
	case "short_sale":
		return model.OutcomePathShortSale, nil
	case "modification":
		return model.OutcomePathModification, nil
	}
	return "", fmt.Errorf("unknown outcome path %q", param)
}

// AssetSchedule projects one asset. pathParam overrides the asset's open
// outcome path; with neither, there is nothing to project.
func (s *Service) AssetSchedule(ctx context.Context, hubID, pathParam string) (*model.CashFlowSchedule, error) {
	detail, err := s.store.GetAssetDetail(ctx, hubID)
	if err != nil {
		return nil, err
	}

	path := ""
	if pathParam != "" {
		path, err = normalizePath(pathParam)
		if err != nil {
			return nil, err
		}
	} else if detail.ActiveOutcome != nil {
		path = detail.ActiveOutcome.Path
	} else {
		return nil, fmt.Errorf("asset %s has no open outcome; pass ?outcome=", hubID)
	}

	assumptions, err := s.store.GetTradeAssumptions(ctx, detail.Asset.TradeID)
	if err != nil {
		return nil, fmt.Errorf("trade %d assumptions: %w", detail.Asset.TradeID, err)
	}

	start := time.Now()
	sched, err := Project(s.policy.Current(), Input{
		Asset:       detail.Asset,
		Assumptions: *assumptions,
		Valuation:   detail.LatestValuation,
		Path:        path,
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveDuration(metrics.CashflowComputeDuration, start, path)
	return sched, nil
}

// TradeSchedule aggregates every asset's projection for a trade, month by
// month. Assets with no open outcome are projected under the reo path (the
// full-cost template) so the portfolio view stays conservative.
func (s *Service) TradeSchedule(ctx context.Context, tradeID int64) (*model.TradeCashFlow, error) {
	trade, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	key := store.SiloKey("cashflow_trade", trade.SellerID, trade.ID)
	var cached model.TradeCashFlow
	if err := s.store.GetJSON(ctx, key, &cached); err == nil {
		metrics.IncCacheAccess("cashflow_trade", "hit")
		return &cached, nil
	}
	metrics.IncCacheAccess("cashflow_trade", "miss")

	return s.trades.Do(ctx, key, func(fctx context.Context) (*model.TradeCashFlow, error) {
		tcf, err := s.computeTrade(fctx, trade.SellerID, trade.ID)
		if err != nil {
			return nil, err
		}
		if err := s.store.SetSiloJSON(fctx, trade.SellerID, trade.ID, key, tcf, s.cacheTTL); err != nil {
			s.logger.Warn("cashflow.trade_cache_failed",
				zap.Int64("trade_id", trade.ID),
				zap.Error(err))
		}
		return tcf, nil
	})
}

// Invalidate aborts any in-progress trade aggregation for the silo. Called
// after mutations alongside the store's cache invalidation.
func (s *Service) Invalidate(sellerID, tradeID int64) {
	s.trades.Cancel(store.SiloKey("cashflow_trade", sellerID, tradeID))
}

func (s *Service) computeTrade(ctx context.Context, sellerID, tradeID int64) (*model.TradeCashFlow, error) {
	start := time.Now()

	assumptions, err := s.store.GetTradeAssumptions(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("trade %d assumptions: %w", tradeID, err)
	}
	assets, err := s.store.ListAssets(ctx, sellerID, tradeID)
	if err != nil {
		return nil, err
	}

	policy := s.policy.Current()
	tcf := &model.TradeCashFlow{
		TradeID:       tradeID,
		GrossCosts:    decimal.Zero,
		GrossProceeds: decimal.Zero,
		NetTotal:      decimal.Zero,
		GeneratedAt:   time.Now().UTC(),
	}

	for i := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a := &assets[i]
		if a.Status == model.AssetStatusLiquidated {
			continue
		}

		path := model.OutcomePathREO
		var val *model.Valuation
		detail, err := s.store.GetAssetDetail(ctx, a.HubID)
		if err != nil {
			return nil, fmt.Errorf("asset %s detail: %w", a.HubID, err)
		}
		if detail.ActiveOutcome != nil {
			path = detail.ActiveOutcome.Path
		}
		val = detail.LatestValuation

		sched, err := Project(policy, Input{
			Asset:       *a,
			Assumptions: *assumptions,
			Valuation:   val,
			Path:        path,
		})
		if err != nil {
			return nil, fmt.Errorf("asset %s projection: %w", a.HubID, err)
		}
		mergeSchedule(tcf, sched)
		tcf.AssetCount++
	}

	tcf.NPV = npv(tcf.Months, assumptions.DiscountRate)
	metrics.ObserveDuration(metrics.CashflowComputeDuration, start, "trade")
	s.logger.Debug("cashflow.trade_computed",
		zap.Int64("trade_id", tradeID),
		zap.Int("assets", tcf.AssetCount),
		zap.Int("months", len(tcf.Months)))
	return tcf, nil
}

// mergeSchedule folds one asset schedule into the trade aggregate, growing
// the month axis as needed. Period labels are dropped at the trade level
// since assets run on different timelines.
func mergeSchedule(tcf *model.TradeCashFlow, sched *model.CashFlowSchedule) {
	for len(tcf.Months) < len(sched.Months) {
		tcf.Months = append(tcf.Months, model.CashFlowRow{
			MonthIndex: len(tcf.Months),
			Costs:      make(map[string]decimal.Decimal),
			TotalCost:  decimal.Zero,
			Proceeds:   decimal.Zero,
			Net:        decimal.Zero,
		})
	}
	for i, m := range sched.Months {
		agg := &tcf.Months[i]
		for cat, amt := range m.Costs {
			agg.Costs[cat] = agg.Costs[cat].Add(amt)
		}
		agg.TotalCost = agg.TotalCost.Add(m.TotalCost)
		agg.Proceeds = agg.Proceeds.Add(m.Proceeds)
		agg.Net = agg.Net.Add(m.Net)
	}
	tcf.GrossCosts = tcf.GrossCosts.Add(sched.GrossCosts)
	tcf.GrossProceeds = tcf.GrossProceeds.Add(sched.GrossProceeds)
	tcf.NetTotal = tcf.NetTotal.Add(sched.NetTotal)
}
