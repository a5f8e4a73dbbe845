package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GL accounts used by the servicing/REO cost pipeline. Free-form accounts
// are allowed; these are the ones the UI groups on.
const (
	AccountAcquisitionBasis = "ACQ_BASIS"
	AccountLegalFees        = "LEGAL_FEES"
	AccountServicingFees    = "SERVICING_FEES"
	AccountPropertyPres     = "PROPERTY_PRES" // trashout, winterization
	AccountRenovation       = "RENOVATION"
	AccountMarketing        = "MARKETING"
	AccountSaleProceeds     = "SALE_PROCEEDS"
	AccountEscrowAdvances   = "ESCROW_ADVANCES"
)

// Standardized reasons stored on reversal entries.
const (
	ReversalReasonDuplicatePosting   = "Duplicate posting"
	ReversalReasonWrongAsset         = "Posted to wrong asset"
	ReversalReasonWrongAccount       = "Posted to wrong account"
	ReversalReasonAmountCorrection   = "Amount correction"
	ReversalReasonServicerAdjustment = "Servicer adjustment"
	ReversalReasonTradeUnwind        = "Trade unwind"
)

// LedgerEntry is one general-ledger row tied to an asset and its trade.
// Entries are immutable: corrections post a compensating reversal entry
// pointing back at the original via ReversalOf.
type LedgerEntry struct {
	ID             int64           `json:"id"`
	HubID          string          `json:"hub_id"`
	TradeID        int64           `json:"trade_id"`
	Account        string          `json:"account"`
	SubAccount     string          `json:"sub_account,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Memo           string          `json:"memo,omitempty"`
	EffectiveDate  time.Time       `json:"effective_date"`
	PostedAt       time.Time       `json:"posted_at"`
	PostedBy       string          `json:"posted_by,omitempty"`
	ReversalOf     *int64          `json:"reversal_of,omitempty"`
	ReversalReason string          `json:"reversal_reason,omitempty"`
}

// Reversed reports whether the entry is itself a reversal.
func (e LedgerEntry) Reversed() bool { return e.ReversalOf != nil }

// Net returns debit minus credit.
func (e LedgerEntry) Net() decimal.Decimal { return e.Debit.Sub(e.Credit) }
