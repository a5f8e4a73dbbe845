package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

var validate = validator.New()

// LoginRequest is the POST /api-token-auth payload (Django token auth shape).
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r LoginRequest) Validate() error { return validate.Struct(r) }

// SellerCreateRequest creates a counterparty.
type SellerCreateRequest struct {
	Name      string `json:"name" validate:"required"`
	ShortCode string `json:"short_code" validate:"required,alpha,min=2,max=5"`
}

func (r SellerCreateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.ShortCode != strings.ToUpper(r.ShortCode) {
		return fmt.Errorf("short_code must be uppercase")
	}
	return nil
}

// TradeCreateRequest creates a loan pool under a seller.
type TradeCreateRequest struct {
	SellerID       int64      `json:"seller_id" validate:"required,gt=0"`
	Name           string     `json:"name" validate:"required"`
	Status         string     `json:"status" validate:"omitempty,oneof=PIPELINE BID SETTLED CLOSED DEAD"`
	BidDate        *time.Time `json:"bid_date"`
	SettlementDate *time.Time `json:"settlement_date"`
}

func (r TradeCreateRequest) Validate() error { return validate.Struct(r) }

// TradePatchRequest carries PATCH /trades/:id fields; nil means untouched.
type TradePatchRequest struct {
	Status         *string    `json:"status" validate:"omitempty,oneof=PIPELINE BID SETTLED CLOSED DEAD"`
	BidDate        *time.Time `json:"bid_date"`
	SettlementDate *time.Time `json:"settlement_date"`
}

func (r TradePatchRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Status == nil && r.BidDate == nil && r.SettlementDate == nil {
		return fmt.Errorf("empty patch")
	}
	return nil
}

// AssumptionsPutRequest replaces a trade's pricing assumptions whole.
type AssumptionsPutRequest struct {
	DiscountRate        decimal.Decimal `json:"discount_rate"`
	ServicingFeeMonthly decimal.Decimal `json:"servicing_fee_monthly"`
	LegalFeeBudget      decimal.Decimal `json:"legal_fee_budget"`
	TrashoutCost        decimal.Decimal `json:"trashout_cost"`
	RenovationBudget    decimal.Decimal `json:"renovation_budget"`
	MarketingCost       decimal.Decimal `json:"marketing_cost"`
	SaleCostPct         decimal.Decimal `json:"sale_cost_pct"`
}

func (r AssumptionsPutRequest) Validate() error {
	if r.DiscountRate.IsNegative() || r.DiscountRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("discount_rate must be within [0, 1]")
	}
	if r.SaleCostPct.IsNegative() || r.SaleCostPct.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("sale_cost_pct must be within [0, 1]")
	}
	for name, v := range map[string]decimal.Decimal{
		"servicing_fee_monthly": r.ServicingFeeMonthly,
		"legal_fee_budget":      r.LegalFeeBudget,
		"trashout_cost":         r.TrashoutCost,
		"renovation_budget":     r.RenovationBudget,
		"marketing_cost":        r.MarketingCost,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// TradeDateCreateRequest adds a milestone date to a trade.
type TradeDateCreateRequest struct {
	Label string    `json:"label" validate:"required"`
	Due   time.Time `json:"due" validate:"required"`
}

func (r TradeDateCreateRequest) Validate() error { return validate.Struct(r) }

// TradeDatePatchRequest completes or reopens a milestone.
type TradeDatePatchRequest struct {
	Completed bool `json:"completed"`
}

// AssetPatchRequest carries PATCH /assets/:hubId fields.
type AssetPatchRequest struct {
	Status  *string `json:"status" validate:"omitempty,oneof=ACQUISITION SERVICING AM LIQUIDATED"`
	FCStage *string `json:"fc_stage" validate:"omitempty,oneof=NONE REFERRED JUDGMENT SALE_SCHEDULED SOLD"`
}

func (r AssetPatchRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Status == nil && r.FCStage == nil {
		return fmt.Errorf("empty patch")
	}
	return nil
}

// ValuationCreateRequest records a completed valuation for an asset.
type ValuationCreateRequest struct {
	HubID         string          `json:"hub_id" validate:"required"`
	Kind          string          `json:"kind" validate:"required"`
	Value         decimal.Decimal `json:"value"`
	AsIsValue     decimal.Decimal `json:"as_is_value"`
	ARVValue      decimal.Decimal `json:"arv_value"`
	EffectiveDate time.Time       `json:"effective_date" validate:"required"`
	Source        string          `json:"source"`
}

func (r ValuationCreateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if _, ok := model.ValuationKindPriority[strings.ToUpper(r.Kind)]; !ok {
		return fmt.Errorf("kind must be one of BPO, APPRAISAL, AVM, DESKTOP")
	}
	if !r.Value.IsPositive() {
		return fmt.Errorf("value must be greater than 0")
	}
	return nil
}

// ValuationOrderRequest places a vendor order for an asset.
type ValuationOrderRequest struct {
	HubID string `json:"hub_id" validate:"required"`
	Kind  string `json:"kind" validate:"required"`
}

func (r ValuationOrderRequest) Validate() error { return validate.Struct(r) }

// OutcomeOpenRequest opens a disposition path on an asset.
type OutcomeOpenRequest struct {
	Path string `json:"path" validate:"required,oneof=DIL FORECLOSURE REO SHORT_SALE MODIFICATION"`
}

func (r OutcomeOpenRequest) Validate() error { return validate.Struct(r) }

// OutcomePatchRequest changes an outcome's status.
type OutcomePatchRequest struct {
	Status string `json:"status" validate:"required,oneof=OPEN COMPLETE ABANDONED"`
}

func (r OutcomePatchRequest) Validate() error { return validate.Struct(r) }

// TaskPatchRequest completes or uncompletes a checklist task.
type TaskPatchRequest struct {
	Completed bool `json:"completed"`
}

// LedgerPostRequest posts one GL row. Exactly one side carries an amount;
// reversals go through POST /ledger/:id/reverse, never through here.
type LedgerPostRequest struct {
	HubID         string          `json:"hub_id" validate:"required"`
	Account       string          `json:"account" validate:"required"`
	SubAccount    string          `json:"sub_account"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Memo          string          `json:"memo"`
	EffectiveDate time.Time       `json:"effective_date" validate:"required"`
}

func (r LedgerPostRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Debit.IsNegative() || r.Credit.IsNegative() {
		return fmt.Errorf("debit and credit must not be negative")
	}
	if r.Debit.IsPositive() == r.Credit.IsPositive() {
		return fmt.Errorf("exactly one of debit or credit must be positive")
	}
	return nil
}

// LedgerReverseRequest posts a compensating entry against an existing row.
type LedgerReverseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (r LedgerReverseRequest) Validate() error { return validate.Struct(r) }

// BrokerRequest creates or updates a broker directory row.
type BrokerRequest struct {
	Name   string   `json:"name" validate:"required"`
	Firm   string   `json:"firm"`
	Email  string   `json:"email" validate:"required,email"`
	Phone  string   `json:"phone"`
	States []string `json:"states" validate:"dive,len=2,alpha"`
}

func (r BrokerRequest) Validate() error { return validate.Struct(r) }

// InvestorRequest creates or updates an investor directory row.
type InvestorRequest struct {
	Name  string `json:"name" validate:"required"`
	Firm  string `json:"firm"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

func (r InvestorRequest) Validate() error { return validate.Struct(r) }

// LegalContactRequest creates or updates a counsel directory row.
type LegalContactRequest struct {
	Name      string `json:"name" validate:"required"`
	Firm      string `json:"firm" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	State     string `json:"state" validate:"required,len=2,alpha"`
	Specialty string `json:"specialty" validate:"omitempty,oneof=FC BK EVICTION TITLE"`
}

func (r LegalContactRequest) Validate() error { return validate.Struct(r) }

// TradingPartnerRequest creates or updates a trading-partner directory row.
type TradingPartnerRequest struct {
	Name  string `json:"name" validate:"required"`
	Firm  string `json:"firm"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
	Side  string `json:"side" validate:"required,oneof=BUY SELL BOTH"`
}

func (r TradingPartnerRequest) Validate() error { return validate.Struct(r) }
