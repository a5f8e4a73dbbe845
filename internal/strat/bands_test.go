package strat

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func asset(balance, coupon, state, propType string) model.Asset {
	return model.Asset{
		CurrentBalance: dec(balance),
		CouponRate:     dec(coupon),
		State:          state,
		PropertyType:   propType,
	}
}

func TestCompute_BalanceBands(t *testing.T) {
	assets := []model.Asset{
		asset("20000", "0.06", "OH", "SFR"),
		asset("30000", "0.07", "OH", "SFR"),
		asset("45000", "0.08", "FL", "CONDO"),
		asset("600000", "0.05", "NY", "MULTI"),
	}

	r, err := Compute(12, 340, model.StratByCurrentBalance, assets)
	require.NoError(t, err)

	assert.Equal(t, 4, r.Assets)
	assert.True(t, r.TotalUPB.Equal(dec("695000")))
	require.Len(t, r.Bands, 3)

	// Bands come back in edge order.
	assert.Equal(t, "$0–$25,000", r.Bands[0].Label)
	assert.Equal(t, 1, r.Bands[0].Count)
	assert.Equal(t, "$25,000–$50,000", r.Bands[1].Label)
	assert.Equal(t, 2, r.Bands[1].Count)
	assert.True(t, r.Bands[1].Balance.Equal(dec("75000")))
	assert.Equal(t, "$500,000+", r.Bands[2].Label)
	assert.True(t, r.Bands[2].Hi.IsZero(), "open-ended band has no upper edge")
}

func TestCompute_PctBalanceSumsToOne(t *testing.T) {
	assets := []model.Asset{
		asset("100000", "0.06", "OH", "SFR"),
		asset("100000", "0.07", "FL", "SFR"),
		asset("200000", "0.08", "NY", "CONDO"),
	}

	r, err := Compute(12, 340, model.StratByState, assets)
	require.NoError(t, err)

	total := decimal.Zero
	for _, b := range r.Bands {
		total = total.Add(b.PctBalance)
	}
	assert.True(t, total.Equal(dec("1")), "pct sum %s", total)
}

func TestCompute_CouponBands(t *testing.T) {
	assets := []model.Asset{
		asset("100000", "0.0625", "OH", "SFR"), // 6.00–6.50
		asset("100000", "0.0649", "OH", "SFR"), // 6.00–6.50
		asset("100000", "0.0650", "FL", "SFR"), // 6.50–7.00
	}

	r, err := Compute(12, 340, model.StratByCoupon, assets)
	require.NoError(t, err)

	require.Len(t, r.Bands, 2)
	assert.Equal(t, "6.00%–6.50%", r.Bands[0].Label)
	assert.Equal(t, 2, r.Bands[0].Count)
	assert.True(t, r.Bands[0].Lo.Equal(dec("0.06")))
	assert.True(t, r.Bands[0].Hi.Equal(dec("0.065")))
	assert.Equal(t, "6.50%–7.00%", r.Bands[1].Label)
}

func TestCompute_BalanceWeightedAvgCoupon(t *testing.T) {
	// 100k at 6% and 300k at 8% → weighted 7.5%.
	assets := []model.Asset{
		asset("100000", "0.06", "OH", "SFR"),
		asset("300000", "0.08", "OH", "SFR"),
	}

	r, err := Compute(12, 340, model.StratByState, assets)
	require.NoError(t, err)

	require.Len(t, r.Bands, 1)
	assert.True(t, r.Bands[0].AvgCoupon.Equal(dec("0.075")), "got %s", r.Bands[0].AvgCoupon)
}

func TestCompute_CategoricalSortedByBalance(t *testing.T) {
	assets := []model.Asset{
		asset("50000", "0.06", "OH", "CONDO"),
		asset("200000", "0.07", "OH", "SFR"),
		asset("100000", "0.08", "OH", "MULTI"),
	}

	r, err := Compute(12, 340, model.StratByPropertyType, assets)
	require.NoError(t, err)

	require.Len(t, r.Bands, 3)
	assert.Equal(t, "SFR", r.Bands[0].Label)
	assert.Equal(t, "MULTI", r.Bands[1].Label)
	assert.Equal(t, "CONDO", r.Bands[2].Label)
}

func TestCompute_EmptySilo(t *testing.T) {
	r, err := Compute(12, 340, model.StratByCoupon, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, r.Assets)
	assert.Empty(t, r.Bands)
	assert.True(t, r.TotalUPB.IsZero())
}

func TestCompute_UnknownDimension(t *testing.T) {
	_, err := Compute(12, 340, "lien_position", nil)
	assert.Error(t, err)
}
