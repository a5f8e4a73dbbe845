package model

import "github.com/shopspring/decimal"

// Stratification dimensions accepted by GET /strat.
const (
	StratByCurrentBalance = "current_balance"
	StratByCoupon         = "coupon"
	StratByState          = "state"
	StratByPropertyType   = "property_type"
)

// StratDimensions lists all valid dimensions.
var StratDimensions = []string{
	StratByCurrentBalance,
	StratByCoupon,
	StratByState,
	StratByPropertyType,
}

// StratBand is one histogram bucket of a silo-level stratification report.
// For categorical dimensions Lo/Hi are zero and Label carries the category.
type StratBand struct {
	Dimension  string          `json:"dimension"`
	Label      string          `json:"label"`
	Lo         decimal.Decimal `json:"lo"`
	Hi         decimal.Decimal `json:"hi"`
	Count      int             `json:"count"`
	Balance    decimal.Decimal `json:"balance"`     // UPB in band
	PctBalance decimal.Decimal `json:"pct_balance"` // share of silo UPB
	AvgCoupon  decimal.Decimal `json:"avg_coupon"`  // balance-weighted
}

// StratReport is the response body for one silo+dimension.
type StratReport struct {
	SellerID  int64           `json:"seller_id"`
	TradeID   int64           `json:"trade_id"`
	Dimension string          `json:"dimension"`
	Bands     []StratBand     `json:"bands"`
	TotalUPB  decimal.Decimal `json:"total_upb"`
	Assets    int             `json:"assets"`
}
