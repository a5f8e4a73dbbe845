package cashflow

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// Input is everything a projection needs. The engine is pure: no store, no
// clock beyond the GeneratedAt stamp.
type Input struct {
	Asset       model.Asset
	Assumptions model.TradeAssumptions
	Valuation   *model.Valuation // best available, nil when none exists
	Path        string           // outcome path driving the period template
}

// periodSpan is one lifecycle period laid out on the month axis.
type periodSpan struct {
	name   string // model.Period* constant
	key    string // policy key (lowercase)
	start  int    // first month index
	months int
}

var periodOrder = []struct {
	name string
	key  string
}{
	{model.PeriodServicingTransfer, "servicing_transfer"},
	{model.PeriodForeclosure, "foreclosure"},
	{model.PeriodRenovation, "reo_renovation"},
	{model.PeriodMarketing, "reo_marketing"},
}

// pathPeriods maps each outcome path to the periods it passes through, in
// lifecycle order. Sale is appended separately for every path but
// modification.
var pathPeriods = map[string][]string{
	model.OutcomePathREO:          {"servicing_transfer", "foreclosure", "reo_renovation", "reo_marketing"},
	model.OutcomePathForeclosure:  {"servicing_transfer", "foreclosure"},
	model.OutcomePathDIL:          {"servicing_transfer", "reo_renovation", "reo_marketing"},
	model.OutcomePathShortSale:    {"servicing_transfer", "foreclosure"},
	model.OutcomePathModification: {"servicing_transfer"},
}

func hasSale(path string) bool { return path != model.OutcomePathModification }

// periodDuration resolves months for one period: policy default, then the
// judicial-state foreclosure override, then the path override.
func periodDuration(p *TimingPolicy, path, key, state string) int {
	var months int
	switch key {
	case "servicing_transfer":
		months = p.Periods.ServicingTransfer
	case "foreclosure":
		months = p.Periods.Foreclosure
		if m, ok := p.StateForeclosureMonths[state]; ok {
			months = m
		}
	case "reo_renovation":
		months = p.Periods.REORenovation
	case "reo_marketing":
		months = p.Periods.REOMarketing
	}

	if ov, ok := p.Paths[pathPolicyKey(path)]; ok {
		var o *int
		switch key {
		case "servicing_transfer":
			o = ov.ServicingTransfer
		case "foreclosure":
			o = ov.Foreclosure
		case "reo_renovation":
			o = ov.REORenovation
		case "reo_marketing":
			o = ov.REOMarketing
		}
		if o != nil {
			months = *o
		}
	}
	return months
}

func pathPolicyKey(path string) string {
	switch path {
	case model.OutcomePathDIL:
		return "dil"
	case model.OutcomePathForeclosure:
		return "foreclosure"
	case model.OutcomePathREO:
		return "reo"
	case model.OutcomePathShortSale:
		return "short_sale"
	case model.OutcomePathModification:
		return "modification"
	}
	return ""
}

// layout places the path's periods on the month axis. Zero-length periods
// are dropped entirely.
func layout(p *TimingPolicy, path, state string) ([]periodSpan, int) {
	keys, ok := pathPeriods[path]
	if !ok {
		return nil, 0
	}

	var spans []periodSpan
	month := 0
	for _, po := range periodOrder {
		included := false
		for _, k := range keys {
			if k == po.key {
				included = true
				break
			}
		}
		if !included {
			continue
		}
		months := periodDuration(p, path, po.key, state)
		if months <= 0 {
			continue
		}
		spans = append(spans, periodSpan{name: po.name, key: po.key, start: month, months: months})
		month += months
	}

	if hasSale(path) {
		spans = append(spans, periodSpan{name: model.PeriodSale, key: "sale", start: month, months: 1})
		month++
	}
	return spans, month
}

// spreadEven splits total across n months at 2 dp, landing the remainder
// cents on the last month so the allocations sum exactly to total.
func spreadEven(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	shares := make([]decimal.Decimal, n)
	per := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = per
		running = running.Add(per)
	}
	shares[n-1] = total.Sub(running)
	return shares
}

// Project builds the monthly schedule for one asset under one outcome path.
func Project(policy *TimingPolicy, in Input) (*model.CashFlowSchedule, error) {
	if policy == nil {
		return nil, fmt.Errorf("nil timing policy")
	}
	if _, ok := pathPeriods[in.Path]; !ok {
		return nil, fmt.Errorf("unknown outcome path %q", in.Path)
	}

	spans, totalMonths := layout(policy, in.Path, in.Asset.State)
	if totalMonths == 0 {
		return nil, fmt.Errorf("path %s resolves to an empty schedule", in.Path)
	}

	months := make([]model.CashFlowRow, totalMonths)
	for i := range months {
		months[i] = model.CashFlowRow{
			MonthIndex: i,
			Costs:      make(map[string]decimal.Decimal),
			TotalCost:  decimal.Zero,
			Proceeds:   decimal.Zero,
			Net:        decimal.Zero,
		}
	}
	for _, sp := range spans {
		for i := sp.start; i < sp.start+sp.months; i++ {
			months[i].Period = sp.name
		}
	}

	addCost := func(month int, category string, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		months[month].Costs[category] = months[month].Costs[category].Add(amount)
	}

	findSpan := func(key string) *periodSpan {
		for i := range spans {
			if spans[i].key == key {
				return &spans[i]
			}
		}
		return nil
	}

	categoryAmounts := map[string]decimal.Decimal{
		model.CostLegalFees:    in.Assumptions.LegalFeeBudget,
		model.CostTrashout:     in.Assumptions.TrashoutCost,
		model.CostRenovation:   in.Assumptions.RenovationBudget,
		model.CostMarketing:    in.Assumptions.MarketingCost,
		model.CostServicingFee: in.Assumptions.ServicingFeeMonthly,
	}

	for category, amount := range categoryAmounts {
		rule, ok := policy.Rules[category]
		if !ok || amount.IsZero() {
			continue
		}

		switch rule.Timing {
		case TimingMonthlyThroughout:
			// Flat amount every month from month 0 through sale.
			for i := 0; i < totalMonths; i++ {
				addCost(i, category, amount)
			}
		case TimingAtPeriodStart:
			if sp := findSpan(rule.Period); sp != nil {
				addCost(sp.start, category, amount)
			}
			// Period absent from this path: cost does not apply.
		case TimingAtPeriodEnd:
			if sp := findSpan(rule.Period); sp != nil {
				addCost(sp.start+sp.months-1, category, amount)
			}
		case TimingSpreadEven:
			if sp := findSpan(rule.Period); sp != nil {
				for i, share := range spreadEven(amount, sp.months) {
					addCost(sp.start+i, category, share)
				}
			}
		}
	}

	// Sale proceeds and sale costs.
	if hasSale(in.Path) {
		saleMonth := totalMonths - 1
		gross := expectedProceeds(policy, in)
		months[saleMonth].Proceeds = gross
		saleCosts := in.Assumptions.SaleCostPct.Mul(gross).Round(2)
		addCost(saleMonth, model.CostSaleCosts, saleCosts)
	}

	schedule := &model.CashFlowSchedule{
		HubID:         in.Asset.HubID,
		Path:          in.Path,
		Months:        months,
		GrossCosts:    decimal.Zero,
		GrossProceeds: decimal.Zero,
		NetTotal:      decimal.Zero,
		GeneratedAt:   time.Now().UTC(),
	}

	for i := range months {
		total := decimal.Zero
		for _, c := range months[i].Costs {
			total = total.Add(c)
		}
		months[i].TotalCost = total
		months[i].Net = months[i].Proceeds.Sub(total)

		schedule.GrossCosts = schedule.GrossCosts.Add(total)
		schedule.GrossProceeds = schedule.GrossProceeds.Add(months[i].Proceeds)
		schedule.NetTotal = schedule.NetTotal.Add(months[i].Net)
	}

	schedule.NPV = npv(months, in.Assumptions.DiscountRate)
	return schedule, nil
}

// expectedProceeds picks the valuation value when one exists, else the
// policy haircut applied to total debt. Valuation kind priority is enforced
// upstream by the store's LatestValuation query.
func expectedProceeds(policy *TimingPolicy, in Input) decimal.Decimal {
	if in.Valuation != nil && in.Valuation.Value.IsPositive() {
		return in.Valuation.Value.Round(2)
	}
	return in.Asset.TotalDebt.Mul(policy.Haircut()).Round(2)
}

// npv discounts monthly nets at the annual rate with monthly compounding.
// A zero rate returns the plain net total.
func npv(months []model.CashFlowRow, annualRate decimal.Decimal) decimal.Decimal {
	monthly := annualRate.Div(decimal.NewFromInt(12))
	base := decimal.NewFromInt(1).Add(monthly)

	total := decimal.Zero
	factor := decimal.NewFromInt(1)
	for i := range months {
		if i > 0 {
			factor = factor.Mul(base)
		}
		total = total.Add(months[i].Net.DivRound(factor, 8))
	}
	return total.Round(2)
}
