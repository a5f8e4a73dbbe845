package strat

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// balanceEdges are the fixed dollar bands for the current_balance dimension.
// The last band is open-ended.
var balanceEdges = []int64{0, 25_000, 50_000, 100_000, 150_000, 250_000, 500_000}

// couponStep is the 50 bp band width for the coupon dimension.
var couponStep = decimal.NewFromFloat(0.005)

type accumulator struct {
	label    string
	lo, hi   decimal.Decimal
	count    int
	balance  decimal.Decimal
	weighted decimal.Decimal // sum(coupon × balance) for the band average
	order    int             // sort key for numeric dimensions
}

// Compute builds the stratification report for one silo and dimension.
func Compute(sellerID, tradeID int64, dimension string, assets []model.Asset) (*model.StratReport, error) {
	valid := false
	for _, d := range model.StratDimensions {
		if d == dimension {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unknown strat dimension %q", dimension)
	}

	accs := make(map[string]*accumulator)
	totalUPB := decimal.Zero

	for i := range assets {
		a := &assets[i]
		acc := bandFor(accs, dimension, a)
		acc.count++
		acc.balance = acc.balance.Add(a.CurrentBalance)
		acc.weighted = acc.weighted.Add(a.CouponRate.Mul(a.CurrentBalance))
		totalUPB = totalUPB.Add(a.CurrentBalance)
	}

	report := &model.StratReport{
		SellerID:  sellerID,
		TradeID:   tradeID,
		Dimension: dimension,
		Bands:     make([]model.StratBand, 0, len(accs)),
		TotalUPB:  totalUPB,
		Assets:    len(assets),
	}

	for _, acc := range accs {
		band := model.StratBand{
			Dimension: dimension,
			Label:     acc.label,
			Lo:        acc.lo,
			Hi:        acc.hi,
			Count:     acc.count,
			Balance:   acc.balance,
		}
		if totalUPB.IsPositive() {
			band.PctBalance = acc.balance.Div(totalUPB).Round(4)
		}
		if acc.balance.IsPositive() {
			band.AvgCoupon = acc.weighted.DivRound(acc.balance, 6)
		}
		report.Bands = append(report.Bands, band)
	}

	sortBands(report.Bands, accs)
	return report, nil
}

func bandFor(accs map[string]*accumulator, dimension string, a *model.Asset) *accumulator {
	var label string
	var lo, hi decimal.Decimal
	var order int

	switch dimension {
	case model.StratByCurrentBalance:
		idx := len(balanceEdges) - 1
		for i := 1; i < len(balanceEdges); i++ {
			if a.CurrentBalance.LessThan(decimal.NewFromInt(balanceEdges[i])) {
				idx = i - 1
				break
			}
		}
		lo = decimal.NewFromInt(balanceEdges[idx])
		if idx < len(balanceEdges)-1 {
			hi = decimal.NewFromInt(balanceEdges[idx+1])
			label = fmt.Sprintf("$%s–$%s", comma(balanceEdges[idx]), comma(balanceEdges[idx+1]))
		} else {
			label = fmt.Sprintf("$%s+", comma(balanceEdges[idx]))
		}
		order = idx
	case model.StratByCoupon:
		n := a.CouponRate.Div(couponStep).Floor()
		lo = n.Mul(couponStep)
		hi = lo.Add(couponStep)
		label = fmt.Sprintf("%s%%–%s%%",
			lo.Mul(decimal.NewFromInt(100)).StringFixed(2),
			hi.Mul(decimal.NewFromInt(100)).StringFixed(2))
		order = int(n.IntPart())
	case model.StratByState:
		label = a.State
	case model.StratByPropertyType:
		label = a.PropertyType
	}

	if acc, ok := accs[label]; ok {
		return acc
	}
	acc := &accumulator{
		label:    label,
		lo:       lo,
		hi:       hi,
		balance:  decimal.Zero,
		weighted: decimal.Zero,
		order:    order,
	}
	accs[label] = acc
	return acc
}

// sortBands orders numeric dimensions by band edge and categorical ones by
// descending balance.
func sortBands(bands []model.StratBand, accs map[string]*accumulator) {
	if len(bands) == 0 {
		return
	}
	switch bands[0].Dimension {
	case model.StratByCurrentBalance, model.StratByCoupon:
		sort.Slice(bands, func(i, j int) bool {
			return accs[bands[i].Label].order < accs[bands[j].Label].order
		})
	default:
		sort.Slice(bands, func(i, j int) bool {
			if !bands[i].Balance.Equal(bands[j].Balance) {
				return bands[i].Balance.GreaterThan(bands[j].Balance)
			}
			return bands[i].Label < bands[j].Label
		})
	}
}

func comma(n int64) string {
	s := fmt.Sprintf("%d", n)
	out := ""
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += ","
		}
		out += string(c)
	}
	return out
}
