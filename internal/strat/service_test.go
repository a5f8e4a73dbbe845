package strat

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

type mockDataStore struct {
	assets    []model.Asset
	listErr   error
	cache     map[string][]byte
	listCalls atomic.Int32
}

func newMockDataStore() *mockDataStore {
	return &mockDataStore{cache: make(map[string][]byte)}
}

func (m *mockDataStore) ListAssets(ctx context.Context, sellerID, tradeID int64) ([]model.Asset, error) {
	m.listCalls.Add(1)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.assets, nil
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

func TestReport_ComputesAndCaches(t *testing.T) {
	st := newMockDataStore()
	st.assets = []model.Asset{
		asset("100000", "0.06", "OH", "SFR"),
		asset("50000", "0.07", "FL", "CONDO"),
	}
	svc := NewService(zap.NewNop(), st, time.Minute)

	r, err := svc.Report(context.Background(), 12, 340, model.StratByState)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Assets)
	require.Len(t, r.Bands, 2)
	assert.Equal(t, "OH", r.Bands[0].Label)

	// Second call is served from cache.
	r2, err := svc.Report(context.Background(), 12, 340, model.StratByState)
	require.NoError(t, err)
	assert.Equal(t, int32(1), st.listCalls.Load())
	assert.Equal(t, r.Bands, r2.Bands)
}

func TestReport_DimensionsCacheIndependently(t *testing.T) {
	st := newMockDataStore()
	st.assets = []model.Asset{asset("100000", "0.06", "OH", "SFR")}
	svc := NewService(zap.NewNop(), st, time.Minute)

	_, err := svc.Report(context.Background(), 12, 340, model.StratByState)
	require.NoError(t, err)
	_, err = svc.Report(context.Background(), 12, 340, model.StratByCoupon)
	require.NoError(t, err)

	assert.Equal(t, int32(2), st.listCalls.Load())
	assert.Len(t, st.cache, 2)
}

func TestReport_UnknownDimension(t *testing.T) {
	svc := NewService(zap.NewNop(), newMockDataStore(), time.Minute)

	_, err := svc.Report(context.Background(), 12, 340, "vintage")
	assert.Error(t, err)
}

func TestReport_StoreError(t *testing.T) {
	st := newMockDataStore()
	st.listErr = fmt.Errorf("pg down")
	svc := NewService(zap.NewNop(), st, time.Minute)

	_, err := svc.Report(context.Background(), 12, 340, model.StratByState)
	assert.Error(t, err)
}

func TestInvalidate_NoFlightIsNoop(t *testing.T) {
	svc := NewService(zap.NewNop(), newMockDataStore(), time.Minute)
	svc.Invalidate(12, 340) // must not panic with nothing in flight
}
