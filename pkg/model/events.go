package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event envelope. Every message published to NATS
// follows this format; SellerID/TradeID carry the silo the event belongs to.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	SellerID      int64           `json:"seller_id,omitempty"`
	TradeID       int64           `json:"trade_id,omitempty"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// Event types and their subjects. Subject layout:
// evt.assethub.<entity>.<verb>.v1
const (
	EventAssetBoarded      = "asset.boarded"
	EventAssetUpdated      = "asset.updated"
	EventImportStaged      = "import.staged"
	EventImportCommitted   = "import.committed"
	EventValuationRecorded = "valuation.recorded"
	EventOutcomeChanged    = "outcome.changed"
	EventTaskCompleted     = "task.completed"
	EventLedgerPosted      = "ledger.posted"
	EventLedgerReversed    = "ledger.reversed"
	EventStratRefreshed    = "strat.refreshed"
	EventServicerApplied   = "servicer.applied"
)

// SubjectFor returns the NATS subject for an event type.
func SubjectFor(eventType string) string {
	return "evt.assethub." + eventType + ".v1"
}

// ServicerEvent is one frame from the servicer's push feed.
type ServicerEvent struct {
	LoanNumber string          `json:"loanNumber"`
	HubID      string          `json:"hubId,omitempty"`
	Type       string          `json:"type"` // PAYMENT | FC_STAGE | NOTE
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Servicer event types.
const (
	ServicerEventPayment = "PAYMENT"
	ServicerEventFCStage = "FC_STAGE"
	ServicerEventNote    = "NOTE"
)
