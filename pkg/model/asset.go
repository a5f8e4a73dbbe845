package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a whole loan secured by real estate. HubID is the central
// identifier joining the asset across acquisition, servicing, and
// asset-management records.
type Asset struct {
	HubID        string          `json:"hub_id"`
	SellerID     int64           `json:"seller_id"`
	TradeID      int64           `json:"trade_id"`
	LoanNumber   string          `json:"loan_number"`
	Street       string          `json:"street"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	Zip          string          `json:"zip"`
	PropertyType string          `json:"property_type"` // SFR | CONDO | MULTI | MANUFACTURED | LAND
	LienPosition int             `json:"lien_position"`
	CurrentBalance decimal.Decimal `json:"current_balance"` // UPB
	TotalDebt    decimal.Decimal `json:"total_debt"`
	CouponRate   decimal.Decimal `json:"coupon_rate"` // annual note rate, e.g. 0.065
	NextDueDate  *time.Time      `json:"next_due_date,omitempty"`
	FCStage      string          `json:"fc_stage"` // NONE | REFERRED | JUDGMENT | SALE_SCHEDULED | SOLD
	Status       string          `json:"status"`   // ACQUISITION | SERVICING | AM | LIQUIDATED
	BoardedAt    time.Time       `json:"boarded_at"`
}

// Asset statuses.
const (
	AssetStatusAcquisition = "ACQUISITION"
	AssetStatusServicing   = "SERVICING"
	AssetStatusAM          = "AM"
	AssetStatusLiquidated  = "LIQUIDATED"
)

// Foreclosure stages, in pipeline order.
const (
	FCStageNone          = "NONE"
	FCStageReferred      = "REFERRED"
	FCStageJudgment      = "JUDGMENT"
	FCStageSaleScheduled = "SALE_SCHEDULED"
	FCStageSold          = "SOLD"
)

// AssetDetail is the hub join returned by GET /assets/:hubId: the
// acquisition row plus current servicing/AM state.
type AssetDetail struct {
	Asset           Asset       `json:"asset"`
	ActiveOutcome   *Outcome    `json:"active_outcome,omitempty"`
	LatestValuation *Valuation  `json:"latest_valuation,omitempty"`
	OpenTasks       int         `json:"open_tasks"`
	LedgerNet       decimal.Decimal `json:"ledger_net"` // debits - credits to date
}
