package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

type mockStratService struct {
	reportFn func(ctx context.Context, sellerID, tradeID int64, dimension string) (*model.StratReport, error)
}

func (m *mockStratService) Report(ctx context.Context, sellerID, tradeID int64, dimension string) (*model.StratReport, error) {
	if m.reportFn != nil {
		return m.reportFn(ctx, sellerID, tradeID, dimension)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockCashFlowService struct {
	assetFn func(ctx context.Context, hubID, pathParam string) (*model.CashFlowSchedule, error)
	tradeFn func(ctx context.Context, tradeID int64) (*model.TradeCashFlow, error)
}

func (m *mockCashFlowService) AssetSchedule(ctx context.Context, hubID, pathParam string) (*model.CashFlowSchedule, error) {
	if m.assetFn != nil {
		return m.assetFn(ctx, hubID, pathParam)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCashFlowService) TradeSchedule(ctx context.Context, tradeID int64) (*model.TradeCashFlow, error) {
	if m.tradeFn != nil {
		return m.tradeFn(ctx, tradeID)
	}
	return nil, fmt.Errorf("not implemented")
}

func newReportApp(strat StratService, cf CashFlowService) *fiber.App {
	app := fiber.New()
	h := NewReportHandler(zap.NewNop(), strat, cf)
	app.Get("/strat", h.Strat)
	app.Get("/assets/:hubId/cashflows", h.AssetCashFlows)
	app.Get("/trades/:id/cashflows", h.TradeCashFlows)
	return app
}

func TestStrat_DefaultsToCurrentBalance(t *testing.T) {
	svc := &mockStratService{
		reportFn: func(ctx context.Context, sellerID, tradeID int64, dimension string) (*model.StratReport, error) {
			assert.Equal(t, model.StratByCurrentBalance, dimension)
			return &model.StratReport{SellerID: sellerID, TradeID: tradeID, Dimension: dimension}, nil
		},
	}
	app := newReportApp(svc, &mockCashFlowService{})

	resp := doJSON(t, app, http.MethodGet, "/strat?sellerId=12&tradeId=340", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStrat_UnknownDimension(t *testing.T) {
	app := newReportApp(&mockStratService{}, &mockCashFlowService{})

	resp := doJSON(t, app, http.MethodGet, "/strat?sellerId=12&tradeId=340&by=zip_code", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStrat_SupersededIsConflict(t *testing.T) {
	svc := &mockStratService{
		reportFn: func(ctx context.Context, sellerID, tradeID int64, dimension string) (*model.StratReport, error) {
			return nil, context.Canceled
		},
	}
	app := newReportApp(svc, &mockCashFlowService{})

	resp := doJSON(t, app, http.MethodGet, "/strat?sellerId=12&tradeId=340&by=coupon", "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var result map[string]string
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &result))
	assert.Contains(t, result["error"], "superseded")
}

func TestAssetCashFlows_PassesOutcomeQuery(t *testing.T) {
	svc := &mockCashFlowService{
		assetFn: func(ctx context.Context, hubID, pathParam string) (*model.CashFlowSchedule, error) {
			assert.Equal(t, "GSB-340-000001", hubID)
			assert.Equal(t, "reo", pathParam)
			return &model.CashFlowSchedule{
				HubID: hubID,
				Path:  model.OutcomePathREO,
				NPV:   decimal.RequireFromString("61250.00"),
			}, nil
		},
	}
	app := newReportApp(&mockStratService{}, svc)

	resp := doJSON(t, app, http.MethodGet, "/assets/GSB-340-000001/cashflows?outcome=reo", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var schedule model.CashFlowSchedule
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &schedule))
	assert.Equal(t, model.OutcomePathREO, schedule.Path)
}

func TestAssetCashFlows_NoOpenOutcome(t *testing.T) {
	svc := &mockCashFlowService{
		assetFn: func(ctx context.Context, hubID, pathParam string) (*model.CashFlowSchedule, error) {
			return nil, fmt.Errorf("asset %s has no open outcome; pass ?outcome=", hubID)
		},
	}
	app := newReportApp(&mockStratService{}, svc)

	resp := doJSON(t, app, http.MethodGet, "/assets/GSB-340-000001/cashflows", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTradeCashFlows_Success(t *testing.T) {
	svc := &mockCashFlowService{
		tradeFn: func(ctx context.Context, tradeID int64) (*model.TradeCashFlow, error) {
			return &model.TradeCashFlow{TradeID: tradeID, AssetCount: 3}, nil
		},
	}
	app := newReportApp(&mockStratService{}, svc)

	resp := doJSON(t, app, http.MethodGet, "/trades/340/cashflows", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var flow model.TradeCashFlow
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &flow))
	assert.Equal(t, 3, flow.AssetCount)
}
