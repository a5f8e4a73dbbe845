package model

import "time"

// Document is file metadata; content lives under the configured document
// root, keyed by StoragePath. A document attaches to an asset, a trade, or
// both (collateral file vs trade-level agreement).
type Document struct {
	ID          string    `json:"id"` // uuid
	HubID       string    `json:"hub_id,omitempty"`
	TradeID     *int64    `json:"trade_id,omitempty"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StoragePath string    `json:"-"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
