package model

import (
	"encoding/json"
	"time"
)

// Import batch statuses.
const (
	ImportStatusStaged    = "STAGED"
	ImportStatusValidated = "VALIDATED"
	ImportStatusCommitted = "COMMITTED"
	ImportStatusFailed    = "FAILED"
	ImportStatusExpired   = "EXPIRED"
)

// ImportBatch is one uploaded seller tape staged for review. At most one
// batch per (seller, trade) may be STAGED or VALIDATED; a newer upload
// supersedes the prior one.
type ImportBatch struct {
	ID          string     `json:"id"` // uuid
	SellerID    int64      `json:"seller_id"`
	TradeID     int64      `json:"trade_id"`
	Filename    string     `json:"filename"`
	Status      string     `json:"status"`
	RowCount    int        `json:"row_count"`
	ErrorCount  int        `json:"error_count"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
}

// ImportRow is one tape row held in staging. Raw preserves every tape
// column, including ones the mapper did not recognize.
type ImportRow struct {
	BatchID string          `json:"batch_id"`
	RowNum  int             `json:"row_num"`
	Raw     json.RawMessage `json:"raw"`
	HubID   string          `json:"hub_id,omitempty"` // set on commit
	Errors  []string        `json:"errors,omitempty"`
}

// ImportJob is the RabbitMQ payload enqueued when a tape is staged.
type ImportJob struct {
	BatchID  string `json:"batchId"`
	SellerID int64  `json:"sellerId"`
	TradeID  int64  `json:"tradeId"`
	Attempt  int    `json:"attempt,omitempty"`
}
