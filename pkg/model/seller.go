package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Seller is a counterparty offering loan pools. Sellers and their trades are
// the primary data-siloing keys across the whole platform.
type Seller struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ShortCode string    `json:"short_code"` // e.g. "GSB"; used in cache keys and hub IDs
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Trade is a batch/pool of loan assets offered by a seller.
type Trade struct {
	ID             int64      `json:"id"`
	SellerID       int64      `json:"seller_id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"` // PIPELINE | BID | SETTLED | CLOSED | DEAD
	BidDate        *time.Time `json:"bid_date,omitempty"`
	SettlementDate *time.Time `json:"settlement_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Trade statuses.
const (
	TradeStatusPipeline = "PIPELINE"
	TradeStatusBid      = "BID"
	TradeStatusSettled  = "SETTLED"
	TradeStatusClosed   = "CLOSED"
	TradeStatusDead     = "DEAD"
)

// TradeDate is a milestone date on a trade's timeline (bid, award, cutoff,
// servicing transfer, settlement...).
type TradeDate struct {
	ID        int64      `json:"id"`
	TradeID   int64      `json:"trade_id"`
	Label     string     `json:"label"`
	Due       time.Time  `json:"due"`
	Completed *time.Time `json:"completed,omitempty"`
}

// TradeAssumptions holds per-trade pricing assumptions consumed by the
// cash-flow engine. One row per trade, upserted whole.
type TradeAssumptions struct {
	TradeID             int64           `json:"trade_id"`
	DiscountRate        decimal.Decimal `json:"discount_rate"`         // annual, e.g. 0.12
	ServicingFeeMonthly decimal.Decimal `json:"servicing_fee_monthly"` // flat $/month/asset
	LegalFeeBudget      decimal.Decimal `json:"legal_fee_budget"`      // per asset, spread across foreclosure
	TrashoutCost        decimal.Decimal `json:"trashout_cost"`
	RenovationBudget    decimal.Decimal `json:"renovation_budget"`
	MarketingCost       decimal.Decimal `json:"marketing_cost"`
	SaleCostPct         decimal.Decimal `json:"sale_cost_pct"` // fraction of gross proceeds, e.g. 0.08
	UpdatedAt           time.Time       `json:"updated_at"`
}
