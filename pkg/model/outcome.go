package model

import "time"

// Outcome disposition paths. An asset has at most one open outcome; opening
// a new path retires the prior one and its open tasks.
const (
	OutcomePathDIL          = "DIL"
	OutcomePathForeclosure  = "FORECLOSURE"
	OutcomePathREO          = "REO"
	OutcomePathShortSale    = "SHORT_SALE"
	OutcomePathModification = "MODIFICATION"
)

// OutcomePaths lists all valid paths.
var OutcomePaths = []string{
	OutcomePathDIL,
	OutcomePathForeclosure,
	OutcomePathREO,
	OutcomePathShortSale,
	OutcomePathModification,
}

// Outcome statuses.
const (
	OutcomeStatusOpen      = "OPEN"
	OutcomeStatusComplete  = "COMPLETE"
	OutcomeStatusAbandoned = "ABANDONED"
)

// Outcome is one disposition path for a distressed asset.
type Outcome struct {
	ID       int64      `json:"id"`
	HubID    string     `json:"hub_id"`
	Path     string     `json:"path"`
	Status   string     `json:"status"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// OutcomeTask is a checklist row under an outcome, instantiated from the
// per-path template when the outcome opens.
type OutcomeTask struct {
	ID          int64      `json:"id"`
	OutcomeID   int64      `json:"outcome_id"`
	Name        string     `json:"name"`
	Sequence    int        `json:"sequence"`
	Due         *time.Time `json:"due,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Overdue     bool       `json:"overdue"`
}

// TaskTemplates maps each outcome path to its ordered checklist. Due offsets
// are applied from the outcome open date by the servicing store.
var TaskTemplates = map[string][]TaskTemplate{
	OutcomePathDIL: {
		{Name: "Order title report", DueDays: 7},
		{Name: "Negotiate deed-in-lieu agreement", DueDays: 30},
		{Name: "Record deed", DueDays: 60},
		{Name: "Confirm vacancy / cash-for-keys", DueDays: 75},
	},
	OutcomePathForeclosure: {
		{Name: "Refer to foreclosure counsel", DueDays: 7},
		{Name: "First legal filed", DueDays: 45},
		{Name: "Judgment entered", DueDays: 180},
		{Name: "Sale scheduled", DueDays: 240},
		{Name: "Sale held / bid confirmed", DueDays: 270},
	},
	OutcomePathREO: {
		{Name: "Confirm REO deed recorded", DueDays: 14},
		{Name: "Secure and winterize property", DueDays: 21},
		{Name: "Order trashout", DueDays: 30},
		{Name: "Approve renovation scope", DueDays: 45},
		{Name: "List property", DueDays: 120},
	},
	OutcomePathShortSale: {
		{Name: "Collect borrower financials", DueDays: 14},
		{Name: "Order BPO", DueDays: 21},
		{Name: "Approve offer", DueDays: 60},
		{Name: "Close escrow", DueDays: 90},
	},
	OutcomePathModification: {
		{Name: "Collect trial payment plan docs", DueDays: 14},
		{Name: "Three trial payments received", DueDays: 104},
		{Name: "Execute permanent modification", DueDays: 120},
	},
}

// TaskTemplate is one row of a path checklist.
type TaskTemplate struct {
	Name    string
	DueDays int // days after outcome open
}
