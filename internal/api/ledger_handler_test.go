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

type mockLedgerStore struct {
	getAssetFn func(ctx context.Context, hubID string) (*model.Asset, error)
	listSiloFn func(ctx context.Context, sellerID, tradeID int64) ([]model.LedgerEntry, error)
	listHubFn  func(ctx context.Context, hubID string) ([]model.LedgerEntry, error)
	postFn     func(ctx context.Context, e *model.LedgerEntry) error
	reverseFn  func(ctx context.Context, id int64, reason, postedBy string) (*model.LedgerEntry, error)
}

func (m *mockLedgerStore) GetAsset(ctx context.Context, hubID string) (*model.Asset, error) {
	if m.getAssetFn != nil {
		return m.getAssetFn(ctx, hubID)
	}
	return &model.Asset{HubID: hubID, SellerID: 12, TradeID: 340}, nil
}

func (m *mockLedgerStore) ListLedgerBySilo(ctx context.Context, sellerID, tradeID int64) ([]model.LedgerEntry, error) {
	if m.listSiloFn != nil {
		return m.listSiloFn(ctx, sellerID, tradeID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockLedgerStore) ListLedgerByHub(ctx context.Context, hubID string) ([]model.LedgerEntry, error) {
	if m.listHubFn != nil {
		return m.listHubFn(ctx, hubID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockLedgerStore) PostLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	if m.postFn != nil {
		return m.postFn(ctx, e)
	}
	return fmt.Errorf("not implemented")
}

func (m *mockLedgerStore) ReverseLedgerEntry(ctx context.Context, id int64, reason, postedBy string) (*model.LedgerEntry, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, id, reason, postedBy)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockEventPublisher struct {
	types []string
}

func (m *mockEventPublisher) PublishEvent(ctx context.Context, eventType string, sellerID, tradeID int64, payload any) error {
	m.types = append(m.types, eventType)
	return nil
}

func newLedgerApp(st LedgerStore, ev EventPublisher) *fiber.App {
	app := fiber.New()
	h := NewLedgerHandler(zap.NewNop(), st, ev)
	app.Get("/ledger", h.List)
	app.Post("/ledger", h.Post)
	app.Post("/ledger/:id/reverse", h.Reverse)
	return app
}

func TestLedgerPost_Success(t *testing.T) {
	var posted *model.LedgerEntry
	st := &mockLedgerStore{
		postFn: func(ctx context.Context, e *model.LedgerEntry) error {
			e.ID = 901
			posted = e
			return nil
		},
	}
	ev := &mockEventPublisher{}
	app := newLedgerApp(st, ev)

	body := `{
		"hub_id": "GSB-340-000001",
		"account": "LEGAL_FEES",
		"debit": "750.00",
		"memo": "complaint filing",
		"effective_date": "2026-03-01T00:00:00Z"
	}`
	resp := doJSON(t, app, http.MethodPost, "/ledger", body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.NotNil(t, posted)
	assert.Equal(t, int64(340), posted.TradeID)
	assert.True(t, posted.Debit.Equal(decimal.RequireFromString("750.00")))
	assert.Equal(t, []string{model.EventLedgerPosted}, ev.types)
}

func TestLedgerPost_BothSidesRejected(t *testing.T) {
	app := newLedgerApp(&mockLedgerStore{}, &mockEventPublisher{})

	body := `{
		"hub_id": "GSB-340-000001",
		"account": "LEGAL_FEES",
		"debit": "750.00",
		"credit": "750.00",
		"effective_date": "2026-03-01T00:00:00Z"
	}`
	resp := doJSON(t, app, http.MethodPost, "/ledger", body)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &result))
	assert.Contains(t, result["error"], "exactly one of debit or credit")
}

func TestLedgerPost_NeitherSideRejected(t *testing.T) {
	app := newLedgerApp(&mockLedgerStore{}, &mockEventPublisher{})

	body := `{
		"hub_id": "GSB-340-000001",
		"account": "LEGAL_FEES",
		"effective_date": "2026-03-01T00:00:00Z"
	}`
	resp := doJSON(t, app, http.MethodPost, "/ledger", body)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLedgerReverse_Success(t *testing.T) {
	original := int64(901)
	st := &mockLedgerStore{
		reverseFn: func(ctx context.Context, id int64, reason, postedBy string) (*model.LedgerEntry, error) {
			assert.Equal(t, model.ReversalReasonDuplicatePosting, reason)
			return &model.LedgerEntry{
				ID:             902,
				HubID:          "GSB-340-000001",
				TradeID:        340,
				Credit:         decimal.RequireFromString("750.00"),
				ReversalOf:     &original,
				ReversalReason: reason,
			}, nil
		},
	}
	ev := &mockEventPublisher{}
	app := newLedgerApp(st, ev)

	resp := doJSON(t, app, http.MethodPost, "/ledger/901/reverse", `{"reason":"Duplicate posting"}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var entry model.LedgerEntry
	respBody, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(respBody, &entry))
	require.NotNil(t, entry.ReversalOf)
	assert.Equal(t, int64(901), *entry.ReversalOf)
	assert.Equal(t, []string{model.EventLedgerReversed}, ev.types)
}

func TestLedgerReverse_ReasonRequired(t *testing.T) {
	app := newLedgerApp(&mockLedgerStore{}, &mockEventPublisher{})

	resp := doJSON(t, app, http.MethodPost, "/ledger/901/reverse", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLedgerList_ByHub(t *testing.T) {
	st := &mockLedgerStore{
		listHubFn: func(ctx context.Context, hubID string) ([]model.LedgerEntry, error) {
			assert.Equal(t, "GSB-340-000001", hubID)
			return []model.LedgerEntry{{ID: 1, HubID: hubID}}, nil
		},
	}
	app := newLedgerApp(st, &mockEventPublisher{})

	resp := doJSON(t, app, http.MethodGet, "/ledger?hubId=GSB-340-000001", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLedgerList_MissingFilters(t *testing.T) {
	app := newLedgerApp(&mockLedgerStore{}, &mockEventPublisher{})

	resp := doJSON(t, app, http.MethodGet, "/ledger", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
