package cashflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// --- mock data store ---

type mockDataStore struct {
	trade       *model.Trade
	assumptions *model.TradeAssumptions
	assets      []model.Asset
	details     map[string]*model.AssetDetail

	cache       map[string][]byte
	detailCalls atomic.Int32
}

func newMockDataStore() *mockDataStore {
	return &mockDataStore{
		details: make(map[string]*model.AssetDetail),
		cache:   make(map[string][]byte),
	}
}

func (m *mockDataStore) GetTrade(ctx context.Context, id int64) (*model.Trade, error) {
	if m.trade == nil || m.trade.ID != id {
		return nil, fmt.Errorf("trade %d: not found", id)
	}
	return m.trade, nil
}

func (m *mockDataStore) GetTradeAssumptions(ctx context.Context, tradeID int64) (*model.TradeAssumptions, error) {
	if m.assumptions == nil {
		return nil, fmt.Errorf("trade %d: no assumptions", tradeID)
	}
	return m.assumptions, nil
}

func (m *mockDataStore) ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error) {
	return m.assets, nil
}

func (m *mockDataStore) GetAssetDetail(ctx context.Context, hubID string) (*model.AssetDetail, error) {
	m.detailCalls.Add(1)
	d, ok := m.details[hubID]
	if !ok {
		return nil, fmt.Errorf("asset %s: not found", hubID)
	}
	return d, nil
}

func (m *mockDataStore) GetJSON(ctx context.Context, key string, dest any) error {
	b, ok := m.cache[key]
	if !ok {
		return fmt.Errorf("key not found: %s", key)
	}
	return json.Unmarshal(b, dest)
}

func (m *mockDataStore) SetSiloJSON(ctx context.Context, sellerID, tradeID int64, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.cache[key] = b
	return nil
}

func newTestService(t *testing.T) (*Service, *mockDataStore) {
	t.Helper()
	st := newMockDataStore()
	st.trade = &model.Trade{ID: 340, SellerID: 12, Name: "GSB 2026-1"}
	st.assumptions = &model.TradeAssumptions{
		TradeID:             340,
		DiscountRate:        dec("0.12"),
		ServicingFeeMonthly: dec("45"),
		LegalFeeBudget:      dec("3500"),
		TrashoutCost:        dec("1200"),
		RenovationBudget:    dec("10000"),
		MarketingCost:       dec("900"),
		SaleCostPct:         dec("0.08"),
	}

	pp := &PolicyProvider{logger: zap.NewNop()}
	p, err := parsePolicy([]byte(""))
	require.NoError(t, err)
	pp.policy = p

	return NewService(zap.NewNop(), st, pp, time.Minute), st
}

func addAsset(st *mockDataStore, hubID, state string, outcome *model.Outcome, val *model.Valuation) {
	a := model.Asset{
		HubID:     hubID,
		SellerID:  12,
		TradeID:   340,
		State:     state,
		TotalDebt: dec("150000"),
		Status:    model.AssetStatusServicing,
	}
	st.assets = append(st.assets, a)
	st.details[hubID] = &model.AssetDetail{
		Asset:           a,
		ActiveOutcome:   outcome,
		LatestValuation: val,
	}
}

// --- tests ---

func TestAssetSchedule_UsesOpenOutcomePath(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH",
		&model.Outcome{Path: model.OutcomePathDIL, Status: model.OutcomeStatusOpen},
		&model.Valuation{Kind: model.ValuationKindBPO, Value: dec("120000")})

	sched, err := svc.AssetSchedule(context.Background(), "GSB-340-000001", "")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePathDIL, sched.Path)
}

func TestAssetSchedule_QueryParamOverridesOutcome(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH",
		&model.Outcome{Path: model.OutcomePathDIL, Status: model.OutcomeStatusOpen},
		nil)

	sched, err := svc.AssetSchedule(context.Background(), "GSB-340-000001", "reo")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePathREO, sched.Path)
}

func TestAssetSchedule_NoOutcomeNoParam(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH", nil, nil)

	_, err := svc.AssetSchedule(context.Background(), "GSB-340-000001", "")
	assert.Error(t, err)
}

func TestAssetSchedule_BadPathParam(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH", nil, nil)

	_, err := svc.AssetSchedule(context.Background(), "GSB-340-000001", "rent_to_own")
	assert.Error(t, err)
}

func TestAssetSchedule_MissingAssumptions(t *testing.T) {
	svc, st := newTestService(t)
	st.assumptions = nil
	addAsset(st, "GSB-340-000001", "OH",
		&model.Outcome{Path: model.OutcomePathREO, Status: model.OutcomeStatusOpen}, nil)

	_, err := svc.AssetSchedule(context.Background(), "GSB-340-000001", "")
	assert.Error(t, err)
}

func TestTradeSchedule_AggregatesAssets(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH",
		&model.Outcome{Path: model.OutcomePathREO, Status: model.OutcomeStatusOpen},
		&model.Valuation{Kind: model.ValuationKindBPO, Value: dec("120000")})
	addAsset(st, "GSB-340-000002", "OH",
		&model.Outcome{Path: model.OutcomePathModification, Status: model.OutcomeStatusOpen},
		nil)

	tcf, err := svc.TradeSchedule(context.Background(), 340)
	require.NoError(t, err)

	assert.Equal(t, int64(340), tcf.TradeID)
	assert.Equal(t, 2, tcf.AssetCount)
	// Month axis stretches to the longest schedule (reo: 2+12+3+4+1).
	assert.Len(t, tcf.Months, 22)
	// Modification contributes servicing fees in its two months only.
	assert.True(t, tcf.Months[0].Costs[model.CostServicingFee].Equal(dec("90")))
	assert.True(t, tcf.Months[2].Costs[model.CostServicingFee].Equal(dec("45")))
	assert.True(t, tcf.NetTotal.Equal(tcf.GrossProceeds.Sub(tcf.GrossCosts)))
}

func TestTradeSchedule_SkipsLiquidatedAssets(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH",
		&model.Outcome{Path: model.OutcomePathREO, Status: model.OutcomeStatusOpen}, nil)
	st.assets[0].Status = model.AssetStatusLiquidated

	tcf, err := svc.TradeSchedule(context.Background(), 340)
	require.NoError(t, err)
	assert.Equal(t, 0, tcf.AssetCount)
	assert.Empty(t, tcf.Months)
}

func TestTradeSchedule_DefaultsPathToREO(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH", nil, nil)

	tcf, err := svc.TradeSchedule(context.Background(), 340)
	require.NoError(t, err)
	assert.Len(t, tcf.Months, 22)
}

func TestTradeSchedule_CachesResult(t *testing.T) {
	svc, st := newTestService(t)
	addAsset(st, "GSB-340-000001", "OH",
		&model.Outcome{Path: model.OutcomePathREO, Status: model.OutcomeStatusOpen}, nil)

	_, err := svc.TradeSchedule(context.Background(), 340)
	require.NoError(t, err)
	first := st.detailCalls.Load()

	tcf, err := svc.TradeSchedule(context.Background(), 340)
	require.NoError(t, err)
	assert.Equal(t, first, st.detailCalls.Load(), "second call must hit the cache")
	assert.Equal(t, 1, tcf.AssetCount)
}

func TestTradeSchedule_UnknownTrade(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.TradeSchedule(context.Background(), 999)
	assert.Error(t, err)
}
