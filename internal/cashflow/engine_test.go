package cashflow

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

func testPolicy(t *testing.T) *TimingPolicy {
	t.Helper()
	p, err := parsePolicy([]byte(`
state_foreclosure_months:
  NY: 24
  FL: 18
paths:
  short_sale:
    foreclosure: 4
`))
	require.NoError(t, err)
	return p
}

func testInput(path string) Input {
	return Input{
		Asset: model.Asset{
			HubID:     "GSB-340-000017",
			State:     "OH",
			TotalDebt: dec("150000"),
		},
		Assumptions: model.TradeAssumptions{
			DiscountRate:        dec("0.12"),
			ServicingFeeMonthly: dec("45"),
			LegalFeeBudget:      dec("3500"),
			TrashoutCost:        dec("1200"),
			RenovationBudget:    dec("10000"),
			MarketingCost:       dec("900"),
			SaleCostPct:         dec("0.08"),
		},
		Valuation: &model.Valuation{Kind: model.ValuationKindBPO, Value: dec("120000")},
		Path:      path,
	}
}

func TestProject_REOPathLayout(t *testing.T) {
	p := testPolicy(t)

	sched, err := Project(p, testInput(model.OutcomePathREO))
	require.NoError(t, err)

	// 2 + 12 + 3 + 4 + sale month.
	require.Len(t, sched.Months, 22)
	assert.Equal(t, model.PeriodServicingTransfer, sched.Months[0].Period)
	assert.Equal(t, model.PeriodForeclosure, sched.Months[2].Period)
	assert.Equal(t, model.PeriodRenovation, sched.Months[14].Period)
	assert.Equal(t, model.PeriodMarketing, sched.Months[17].Period)
	assert.Equal(t, model.PeriodSale, sched.Months[21].Period)

	// Proceeds only at sale.
	for _, m := range sched.Months[:21] {
		assert.True(t, m.Proceeds.IsZero(), "month %d has proceeds", m.MonthIndex)
	}
	assert.True(t, sched.Months[21].Proceeds.Equal(dec("120000")))
}

func TestProject_CostAllocationSumsExact(t *testing.T) {
	p := testPolicy(t)
	in := testInput(model.OutcomePathREO)

	sched, err := Project(p, in)
	require.NoError(t, err)

	sums := make(map[string]decimal.Decimal)
	for _, m := range sched.Months {
		for cat, amt := range m.Costs {
			sums[cat] = sums[cat].Add(amt)
		}
	}

	assert.True(t, sums[model.CostLegalFees].Equal(dec("3500")), "legal fees sum %s", sums[model.CostLegalFees])
	assert.True(t, sums[model.CostTrashout].Equal(dec("1200")))
	assert.True(t, sums[model.CostRenovation].Equal(dec("10000")))
	assert.True(t, sums[model.CostMarketing].Equal(dec("900")))
	// 45/month over 22 months.
	assert.True(t, sums[model.CostServicingFee].Equal(dec("990")))
	// 8% of 120000.
	assert.True(t, sums[model.CostSaleCosts].Equal(dec("9600")))
}

func TestProject_SpreadRemainderOnLastMonth(t *testing.T) {
	// 1000 over 12 foreclosure months: 11 × 83.33 + 83.37.
	shares := spreadEven(dec("1000"), 12)
	require.Len(t, shares, 12)

	total := decimal.Zero
	for i := 0; i < 11; i++ {
		assert.True(t, shares[i].Equal(dec("83.33")), "month %d got %s", i, shares[i])
		total = total.Add(shares[i])
	}
	assert.True(t, shares[11].Equal(dec("83.37")), "last month got %s", shares[11])
	total = total.Add(shares[11])
	assert.True(t, total.Equal(dec("1000")))
}

func TestProject_TimingPlacement(t *testing.T) {
	p := testPolicy(t)

	sched, err := Project(p, testInput(model.OutcomePathREO))
	require.NoError(t, err)

	// Trashout at renovation start (month 14), nothing after.
	assert.False(t, sched.Months[14].Costs[model.CostTrashout].IsZero())
	assert.True(t, sched.Months[15].Costs[model.CostTrashout].IsZero())

	// Legal fees confined to foreclosure months 2..13.
	assert.True(t, sched.Months[1].Costs[model.CostLegalFees].IsZero())
	assert.False(t, sched.Months[2].Costs[model.CostLegalFees].IsZero())
	assert.False(t, sched.Months[13].Costs[model.CostLegalFees].IsZero())
	assert.True(t, sched.Months[14].Costs[model.CostLegalFees].IsZero())

	// Servicing fee every month including the sale month.
	for _, m := range sched.Months {
		assert.True(t, m.Costs[model.CostServicingFee].Equal(dec("45")), "month %d", m.MonthIndex)
	}
}

func TestProject_StateForeclosureOverride(t *testing.T) {
	p := testPolicy(t)

	in := testInput(model.OutcomePathForeclosure)
	in.Asset.State = "NY"

	sched, err := Project(p, in)
	require.NoError(t, err)

	// 2 transfer + 24 NY foreclosure + sale.
	assert.Len(t, sched.Months, 27)
}

func TestProject_PathOverrideBeatsStateOverride(t *testing.T) {
	p := testPolicy(t)

	in := testInput(model.OutcomePathShortSale)
	in.Asset.State = "NY"

	sched, err := Project(p, in)
	require.NoError(t, err)

	// Short sale carries an abbreviated 4-month foreclosure regardless of NY.
	assert.Len(t, sched.Months, 7)
}

func TestProject_DILSkipsForeclosure(t *testing.T) {
	p := testPolicy(t)

	sched, err := Project(p, testInput(model.OutcomePathDIL))
	require.NoError(t, err)

	// 2 + 3 + 4 + sale; no foreclosure period, no legal fees anywhere.
	require.Len(t, sched.Months, 10)
	for _, m := range sched.Months {
		assert.NotEqual(t, model.PeriodForeclosure, m.Period)
		assert.True(t, m.Costs[model.CostLegalFees].IsZero(), "month %d", m.MonthIndex)
	}
}

func TestProject_ModificationHasNoSale(t *testing.T) {
	p := testPolicy(t)

	sched, err := Project(p, testInput(model.OutcomePathModification))
	require.NoError(t, err)

	require.Len(t, sched.Months, 2)
	assert.True(t, sched.GrossProceeds.IsZero())
	for _, m := range sched.Months {
		assert.NotEqual(t, model.PeriodSale, m.Period)
		assert.True(t, m.Costs[model.CostSaleCosts].IsZero())
	}
	assert.True(t, sched.NetTotal.IsNegative())
}

func TestProject_NoValuationHaircut(t *testing.T) {
	p := testPolicy(t)

	in := testInput(model.OutcomePathForeclosure)
	in.Valuation = nil

	sched, err := Project(p, in)
	require.NoError(t, err)

	// 150000 × 0.70 at the sale month.
	last := sched.Months[len(sched.Months)-1]
	assert.True(t, last.Proceeds.Equal(dec("105000")), "got %s", last.Proceeds)
	assert.True(t, last.Costs[model.CostSaleCosts].Equal(dec("8400")))
}

func TestProject_NPVZeroRateEqualsNet(t *testing.T) {
	p := testPolicy(t)

	in := testInput(model.OutcomePathREO)
	in.Assumptions.DiscountRate = decimal.Zero

	sched, err := Project(p, in)
	require.NoError(t, err)
	assert.True(t, sched.NPV.Equal(sched.NetTotal.Round(2)),
		"NPV %s vs net %s", sched.NPV, sched.NetTotal)
}

func TestProject_NPVDiscountsBelowNet(t *testing.T) {
	p := testPolicy(t)

	sched, err := Project(p, testInput(model.OutcomePathREO))
	require.NoError(t, err)

	// Net is positive and mostly back-loaded, so discounting lowers it.
	require.True(t, sched.NetTotal.IsPositive())
	assert.True(t, sched.NPV.LessThan(sched.NetTotal))
	assert.True(t, sched.NPV.IsPositive())
}

func TestProject_ZeroLengthPeriodDropsItsCosts(t *testing.T) {
	p, err := parsePolicy([]byte(`
periods:
  reo_renovation: 0
`))
	require.NoError(t, err)

	sched, err := Project(p, testInput(model.OutcomePathREO))
	require.NoError(t, err)

	// 2 + 12 + 0 + 4 + sale.
	require.Len(t, sched.Months, 19)
	for _, m := range sched.Months {
		assert.NotEqual(t, model.PeriodRenovation, m.Period)
		assert.True(t, m.Costs[model.CostTrashout].IsZero())
		assert.True(t, m.Costs[model.CostRenovation].IsZero())
		// monthly_throughout costs survive a dropped period.
		assert.False(t, m.Costs[model.CostServicingFee].IsZero())
	}
}

func TestProject_MonthNetAndTotals(t *testing.T) {
	p := testPolicy(t)

	sched, err := Project(p, testInput(model.OutcomePathREO))
	require.NoError(t, err)

	costs := decimal.Zero
	proceeds := decimal.Zero
	for _, m := range sched.Months {
		rowTotal := decimal.Zero
		for _, c := range m.Costs {
			rowTotal = rowTotal.Add(c)
		}
		assert.True(t, m.TotalCost.Equal(rowTotal))
		assert.True(t, m.Net.Equal(m.Proceeds.Sub(m.TotalCost)))
		costs = costs.Add(m.TotalCost)
		proceeds = proceeds.Add(m.Proceeds)
	}
	assert.True(t, sched.GrossCosts.Equal(costs))
	assert.True(t, sched.GrossProceeds.Equal(proceeds))
	assert.True(t, sched.NetTotal.Equal(proceeds.Sub(costs)))
}

func TestProject_UnknownPath(t *testing.T) {
	p := testPolicy(t)

	_, err := Project(p, Input{Path: "RENT_TO_OWN"})
	assert.Error(t, err)
}

func TestProject_NilPolicy(t *testing.T) {
	_, err := Project(nil, testInput(model.OutcomePathREO))
	assert.Error(t, err)
}
