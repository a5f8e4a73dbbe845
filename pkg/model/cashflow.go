package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lifecycle periods, in order. An outcome path selects a subset; the timing
// policy assigns each period a duration in months.
const (
	PeriodServicingTransfer = "SERVICING_TRANSFER"
	PeriodForeclosure       = "FORECLOSURE"
	PeriodRenovation        = "REO_RENOVATION"
	PeriodMarketing         = "REO_MARKETING"
	PeriodSale              = "SALE"
)

// Cost categories allocated by the timing engine.
const (
	CostLegalFees    = "legal_fees"
	CostTrashout     = "trashout"
	CostRenovation   = "renovation"
	CostServicingFee = "servicing_fee"
	CostMarketing    = "marketing"
	CostSaleCosts    = "sale_costs"
)

// CashFlowRow is one projected month. MonthIndex 0 is the first month after
// servicing transfer begins. Costs holds per-category outflows as positive
// numbers; Net = Proceeds - TotalCost.
type CashFlowRow struct {
	MonthIndex int                        `json:"month"`
	Period     string                     `json:"period"`
	Costs      map[string]decimal.Decimal `json:"costs"`
	TotalCost  decimal.Decimal            `json:"total_cost"`
	Proceeds   decimal.Decimal            `json:"proceeds"`
	Net        decimal.Decimal            `json:"net"`
}

// CashFlowSchedule is the full projection for one asset under one path.
type CashFlowSchedule struct {
	HubID         string          `json:"hub_id"`
	Path          string          `json:"path"`
	Months        []CashFlowRow   `json:"months"`
	GrossCosts    decimal.Decimal `json:"gross_costs"`
	GrossProceeds decimal.Decimal `json:"gross_proceeds"`
	NetTotal      decimal.Decimal `json:"net_total"`
	NPV           decimal.Decimal `json:"npv"` // at the trade discount rate, monthly compounding
	GeneratedAt   time.Time       `json:"generated_at"`
}

// TradeCashFlow aggregates asset schedules for one trade month-by-month.
type TradeCashFlow struct {
	TradeID       int64           `json:"trade_id"`
	AssetCount    int             `json:"asset_count"`
	Months        []CashFlowRow   `json:"months"`
	GrossCosts    decimal.Decimal `json:"gross_costs"`
	GrossProceeds decimal.Decimal `json:"gross_proceeds"`
	NetTotal      decimal.Decimal `json:"net_total"`
	NPV           decimal.Decimal `json:"npv"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
