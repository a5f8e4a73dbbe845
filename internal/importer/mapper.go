package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// Canonical tape fields the mapper recognizes.
const (
	fieldLoanNumber   = "loan_number"
	fieldStreet       = "street"
	fieldCity         = "city"
	fieldState        = "state"
	fieldZip          = "zip"
	fieldPropertyType = "property_type"
	fieldLienPosition = "lien_position"
	fieldBalance      = "current_balance"
	fieldTotalDebt    = "total_debt"
	fieldCoupon       = "coupon_rate"
	fieldNextDue      = "next_due_date"
)

// headerAliases maps normalized tape headers to canonical fields. Sellers
// name columns freely; unknown columns survive in Raw untouched.
var headerAliases = map[string]string{
	"loan number":     fieldLoanNumber,
	"loan no":         fieldLoanNumber,
	"loan #":          fieldLoanNumber,
	"loan id":         fieldLoanNumber,
	"account number":  fieldLoanNumber,
	"street":          fieldStreet,
	"address":         fieldStreet,
	"property street": fieldStreet,
	"city":            fieldCity,
	"property city":   fieldCity,
	"state":           fieldState,
	"st":              fieldState,
	"property state":  fieldState,
	"zip":             fieldZip,
	"zip code":        fieldZip,
	"postal code":     fieldZip,
	"property type":   fieldPropertyType,
	"prop type":       fieldPropertyType,
	"lien":            fieldLienPosition,
	"lien position":   fieldLienPosition,
	"lien pos":        fieldLienPosition,
	"current balance": fieldBalance,
	"upb":             fieldBalance,
	"unpaid balance":  fieldBalance,
	"principal balance": fieldBalance,
	"total debt":      fieldTotalDebt,
	"payoff":          fieldTotalDebt,
	"total payoff":    fieldTotalDebt,
	"coupon":          fieldCoupon,
	"rate":            fieldCoupon,
	"note rate":       fieldCoupon,
	"interest rate":   fieldCoupon,
	"next due":        fieldNextDue,
	"next due date":   fieldNextDue,
	"paid to date":    fieldNextDue,
}

var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "DC": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {},
	"IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {},
	"NV": {}, "NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {},
	"OH": {}, "OK": {}, "OR": {}, "PA": {}, "PR": {}, "RI": {}, "SC": {},
	"SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {},
	"WV": {}, "WI": {}, "WY": {},
}

// TapeRow is one mapped and parsed tape row.
type TapeRow struct {
	RowNum       int
	LoanNumber   string
	Street       string
	City         string
	State        string
	Zip          string
	PropertyType string
	LienPosition int
	Balance      decimal.Decimal
	TotalDebt    decimal.Decimal
	Coupon       decimal.Decimal
	NextDue      *time.Time
	Raw          map[string]string
	Errors       []string
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(h)), " "))
}

// mapHeaders resolves each tape column to a canonical field ("" when
// unrecognized).
func mapHeaders(headers []string) []string {
	fields := make([]string, len(headers))
	for i, h := range headers {
		fields[i] = headerAliases[normalizeHeader(h)]
	}
	return fields
}

// parseMoney accepts "$1,234.56", "1234.56" and "(500.00)" (negative).
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// parseCoupon accepts "6.5%", "6.500" (percent) or "0.065" (fraction) and
// returns a fraction.
func parseCoupon(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a rate: %q", s)
	}
	// Tapes quote rates as percents; anything above 1 is a percent.
	if d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d, nil
}

var dateLayouts = []string{"01/02/2006", "2006-01-02", "1/2/2006"}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date: %q", s)
}

// mapRecord parses one CSV record against the resolved header fields.
// Parse failures become row errors, not hard failures.
func mapRecord(rowNum int, headers, fields, record []string) TapeRow {
	row := TapeRow{
		RowNum:       rowNum,
		LienPosition: 1,
		Raw:          make(map[string]string, len(record)),
	}

	for i, val := range record {
		if i >= len(headers) {
			break
		}
		row.Raw[headers[i]] = val
		val = strings.TrimSpace(val)

		switch fields[i] {
		case fieldLoanNumber:
			row.LoanNumber = val
		case fieldStreet:
			row.Street = val
		case fieldCity:
			row.City = val
		case fieldState:
			row.State = strings.ToUpper(val)
		case fieldZip:
			row.Zip = val
		case fieldPropertyType:
			row.PropertyType = strings.ToUpper(val)
		case fieldLienPosition:
			if val != "" {
				n, err := strconv.Atoi(val)
				if err != nil {
					row.Errors = append(row.Errors, fmt.Sprintf("lien position: not a number: %q", val))
				} else {
					row.LienPosition = n
				}
			}
		case fieldBalance:
			d, err := parseMoney(val)
			if err != nil {
				row.Errors = append(row.Errors, "current balance: "+err.Error())
			} else {
				row.Balance = d
			}
		case fieldTotalDebt:
			d, err := parseMoney(val)
			if err != nil {
				row.Errors = append(row.Errors, "total debt: "+err.Error())
			} else {
				row.TotalDebt = d
			}
		case fieldCoupon:
			d, err := parseCoupon(val)
			if err != nil {
				row.Errors = append(row.Errors, "coupon: "+err.Error())
			} else {
				row.Coupon = d
			}
		case fieldNextDue:
			t, err := parseDate(val)
			if err != nil {
				row.Errors = append(row.Errors, "next due date: "+err.Error())
			} else {
				row.NextDue = t
			}
		}
	}

	return row
}

var maxCoupon = decimal.NewFromFloat(0.25)

// validateRow applies the boarding rules. seen tracks loan numbers already
// encountered in the batch for the uniqueness check.
func validateRow(row *TapeRow, seen map[string]int) {
	if row.LoanNumber == "" {
		row.Errors = append(row.Errors, "loan number missing")
	} else if prior, dup := seen[row.LoanNumber]; dup {
		row.Errors = append(row.Errors, fmt.Sprintf("duplicate loan number (first seen row %d)", prior))
	} else {
		seen[row.LoanNumber] = row.RowNum
	}

	if _, ok := usStates[row.State]; !ok {
		row.Errors = append(row.Errors, fmt.Sprintf("unknown state %q", row.State))
	}
	if row.Balance.IsNegative() {
		row.Errors = append(row.Errors, "current balance negative")
	}
	if row.TotalDebt.IsNegative() {
		row.Errors = append(row.Errors, "total debt negative")
	}
	if row.Coupon.IsNegative() || row.Coupon.GreaterThan(maxCoupon) {
		row.Errors = append(row.Errors, fmt.Sprintf("coupon %s outside 0–25%%", row.Coupon))
	}
}

// toAsset builds the boarded asset for a clean row.
func (r *TapeRow) toAsset(hubID string, sellerID, tradeID int64, now time.Time) model.Asset {
	return model.Asset{
		HubID:          hubID,
		SellerID:       sellerID,
		TradeID:        tradeID,
		LoanNumber:     r.LoanNumber,
		Street:         r.Street,
		City:           r.City,
		State:          r.State,
		Zip:            r.Zip,
		PropertyType:   r.PropertyType,
		LienPosition:   r.LienPosition,
		CurrentBalance: r.Balance,
		TotalDebt:      r.TotalDebt,
		CouponRate:     r.Coupon,
		NextDueDate:    r.NextDue,
		FCStage:        model.FCStageNone,
		Status:         model.AssetStatusAcquisition,
		BoardedAt:      now,
	}
}
