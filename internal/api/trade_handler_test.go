package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/store"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// --- mock store ---

type mockTradeStore struct {
	listSellersFn       func(ctx context.Context) ([]model.Seller, error)
	getSellerFn         func(ctx context.Context, id int64) (*model.Seller, error)
	createSellerFn      func(ctx context.Context, s *model.Seller) error
	listTradesFn        func(ctx context.Context, sellerID int64) ([]model.Trade, error)
	getTradeFn          func(ctx context.Context, id int64) (*model.Trade, error)
	createTradeFn       func(ctx context.Context, t *model.Trade) error
	updateTradeFn       func(ctx context.Context, id int64, patch store.TradePatch) (*model.Trade, error)
	getAssumptionsFn    func(ctx context.Context, tradeID int64) (*model.TradeAssumptions, error)
	putAssumptionsFn    func(ctx context.Context, a *model.TradeAssumptions) error
	listTradeDatesFn    func(ctx context.Context, tradeID int64) ([]model.TradeDate, error)
	createTradeDateFn   func(ctx context.Context, d *model.TradeDate) error
	completeTradeDateFn func(ctx context.Context, tradeID, dateID int64, completed *time.Time) (*model.TradeDate, error)
	deleteTradeDateFn   func(ctx context.Context, tradeID, dateID int64) error
}

func (m *mockTradeStore) ListSellers(ctx context.Context) ([]model.Seller, error) {
	if m.listSellersFn != nil {
		return m.listSellersFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) GetSeller(ctx context.Context, id int64) (*model.Seller, error) {
	if m.getSellerFn != nil {
		return m.getSellerFn(ctx, id)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) CreateSeller(ctx context.Context, s *model.Seller) error {
	if m.createSellerFn != nil {
		return m.createSellerFn(ctx, s)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockTradeStore) ListTrades(ctx context.Context, sellerID int64) ([]model.Trade, error) {
	if m.listTradesFn != nil {
		return m.listTradesFn(ctx, sellerID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) GetTrade(ctx context.Context, id int64) (*model.Trade, error) {
	if m.getTradeFn != nil {
		return m.getTradeFn(ctx, id)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) CreateTrade(ctx context.Context, t *model.Trade) error {
	if m.createTradeFn != nil {
		return m.createTradeFn(ctx, t)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockTradeStore) UpdateTrade(ctx context.Context, id int64, patch store.TradePatch) (*model.Trade, error) {
	if m.updateTradeFn != nil {
		return m.updateTradeFn(ctx, id, patch)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) GetTradeAssumptions(ctx context.Context, tradeID int64) (*model.TradeAssumptions, error) {
	if m.getAssumptionsFn != nil {
		return m.getAssumptionsFn(ctx, tradeID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) PutTradeAssumptions(ctx context.Context, a *model.TradeAssumptions) error {
	if m.putAssumptionsFn != nil {
		return m.putAssumptionsFn(ctx, a)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockTradeStore) ListTradeDates(ctx context.Context, tradeID int64) ([]model.TradeDate, error) {
	if m.listTradeDatesFn != nil {
		return m.listTradeDatesFn(ctx, tradeID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) CreateTradeDate(ctx context.Context, d *model.TradeDate) error {
	if m.createTradeDateFn != nil {
		return m.createTradeDateFn(ctx, d)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockTradeStore) CompleteTradeDate(ctx context.Context, tradeID, dateID int64, completed *time.Time) (*model.TradeDate, error) {
	if m.completeTradeDateFn != nil {
		return m.completeTradeDateFn(ctx, tradeID, dateID, completed)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeStore) DeleteTradeDate(ctx context.Context, tradeID, dateID int64) error {
	if m.deleteTradeDateFn != nil {
		return m.deleteTradeDateFn(ctx, tradeID, dateID)
	}
	return fmt.Errorf("not implemented")
}

// mockInvalidator records report invalidations per silo.
type mockInvalidator struct {
	calls [][2]int64
}

func (m *mockInvalidator) Invalidate(sellerID, tradeID int64) {
	m.calls = append(m.calls, [2]int64{sellerID, tradeID})
}

func newTradeApp(st TradeStore, inv ...ReportInvalidator) *fiber.App {
	app := fiber.New()
	h := NewTradeHandler(zap.NewNop(), st, inv...)
	app.Get("/sellers", h.ListSellers)
	app.Post("/sellers", h.CreateSeller)
	app.Get("/trades", h.ListTrades)
	app.Post("/trades", h.CreateTrade)
	app.Patch("/trades/:id", h.PatchTrade)
	app.Put("/trades/:id/assumptions", h.PutAssumptions)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// --- tests ---

func TestCreateSeller_Success(t *testing.T) {
	st := &mockTradeStore{
		createSellerFn: func(ctx context.Context, s *model.Seller) error {
			s.ID = 12
			return nil
		},
	}
	app := newTradeApp(st)

	resp := doJSON(t, app, http.MethodPost, "/sellers", `{"name":"Granite State Bank","short_code":"GSB"}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var seller model.Seller
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &seller))
	assert.Equal(t, int64(12), seller.ID)
	assert.True(t, seller.Active)
}

func TestCreateSeller_LowercaseShortCode(t *testing.T) {
	app := newTradeApp(&mockTradeStore{})

	resp := doJSON(t, app, http.MethodPost, "/sellers", `{"name":"Granite State Bank","short_code":"gsb"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &result))
	assert.Contains(t, result["error"], "uppercase")
}

func TestListTrades_RequiresSellerID(t *testing.T) {
	app := newTradeApp(&mockTradeStore{})

	resp := doJSON(t, app, http.MethodGet, "/trades", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateTrade_DefaultsToPipeline(t *testing.T) {
	var created *model.Trade
	st := &mockTradeStore{
		createTradeFn: func(ctx context.Context, tr *model.Trade) error {
			tr.ID = 340
			created = tr
			return nil
		},
	}
	app := newTradeApp(st)

	resp := doJSON(t, app, http.MethodPost, "/trades", `{"seller_id":12,"name":"GSB 2026-2"}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.NotNil(t, created)
	assert.Equal(t, model.TradeStatusPipeline, created.Status)
}

func TestPatchTrade_EmptyPatchRejected(t *testing.T) {
	app := newTradeApp(&mockTradeStore{})

	resp := doJSON(t, app, http.MethodPatch, "/trades/340", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPatchTrade_StatusChange(t *testing.T) {
	st := &mockTradeStore{
		updateTradeFn: func(ctx context.Context, id int64, patch store.TradePatch) (*model.Trade, error) {
			require.NotNil(t, patch.Status)
			return &model.Trade{ID: id, SellerID: 12, Status: *patch.Status}, nil
		},
	}
	app := newTradeApp(st)

	resp := doJSON(t, app, http.MethodPatch, "/trades/340", `{"status":"SETTLED"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var trade model.Trade
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &trade))
	assert.Equal(t, model.TradeStatusSettled, trade.Status)
}

func TestPutAssumptions_InvalidatesReports(t *testing.T) {
	var put *model.TradeAssumptions
	st := &mockTradeStore{
		getTradeFn: func(ctx context.Context, id int64) (*model.Trade, error) {
			return &model.Trade{ID: id, SellerID: 12}, nil
		},
		putAssumptionsFn: func(ctx context.Context, a *model.TradeAssumptions) error {
			put = a
			return nil
		},
	}
	inv := &mockInvalidator{}
	app := newTradeApp(st, inv)

	body := `{
		"discount_rate": "0.12",
		"servicing_fee_monthly": "85",
		"legal_fee_budget": "3500",
		"trashout_cost": "1500",
		"renovation_budget": "20000",
		"marketing_cost": "1200",
		"sale_cost_pct": "0.08"
	}`
	resp := doJSON(t, app, http.MethodPut, "/trades/340/assumptions", body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, put)
	assert.Equal(t, int64(340), put.TradeID)
	assert.True(t, put.DiscountRate.Equal(decimal.RequireFromString("0.12")))
	assert.Equal(t, [][2]int64{{12, 340}}, inv.calls)
}

func TestPutAssumptions_RejectsDiscountAboveOne(t *testing.T) {
	app := newTradeApp(&mockTradeStore{})

	resp := doJSON(t, app, http.MethodPut, "/trades/340/assumptions", `{"discount_rate":"1.5"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
