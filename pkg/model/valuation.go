package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valuation kinds, in the priority order the cash-flow engine uses when
// picking expected sale proceeds.
const (
	ValuationKindBPO       = "BPO"
	ValuationKindAppraisal = "APPRAISAL"
	ValuationKindAVM       = "AVM"
	ValuationKindDesktop   = "DESKTOP"
)

// ValuationKindPriority ranks kinds for proceeds selection; lower is better.
var ValuationKindPriority = map[string]int{
	ValuationKindBPO:       0,
	ValuationKindAppraisal: 1,
	ValuationKindAVM:       2,
	ValuationKindDesktop:   3,
}

// Valuation is a point-in-time opinion of collateral value for one asset.
type Valuation struct {
	ID            int64           `json:"id"`
	HubID         string          `json:"hub_id"`
	Kind          string          `json:"kind"`
	Value         decimal.Decimal `json:"value"`
	AsIsValue     decimal.Decimal `json:"as_is_value"`
	ARVValue      decimal.Decimal `json:"arv_value"` // after-repair value
	EffectiveDate time.Time       `json:"effective_date"`
	Source        string          `json:"source"` // vendor name or INTERNAL
	OrderedBy     string          `json:"ordered_by,omitempty"`
	Pending       bool            `json:"pending"` // true while a vendor order is outstanding
	CreatedAt     time.Time       `json:"created_at"`
}
