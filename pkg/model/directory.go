package model

import "time"

// CRM directory records. All four directories share the soft-delete
// convention: DELETE sets Active=false, rows are never dropped.

// Broker is a listing/selling agent used for REO dispositions.
type Broker struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Firm      string    `json:"firm,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	States    []string  `json:"states,omitempty"` // coverage, 2-letter codes
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Investor is a capital partner participating in trades.
type Investor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Firm      string    `json:"firm,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// LegalContact is foreclosure/bankruptcy counsel.
type LegalContact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Firm      string    `json:"firm"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	State     string    `json:"state"`               // bar state
	Specialty string    `json:"specialty,omitempty"` // FC | BK | EVICTION | TITLE
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// TradingPartner is a counterparty the desk buys from or sells to.
type TradingPartner struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Firm      string    `json:"firm,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Side      string    `json:"side"` // BUY | SELL | BOTH
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
