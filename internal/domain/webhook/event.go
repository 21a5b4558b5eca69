package webhook

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Webhook Errors
// ---------------------------------------------------------------------------

var (
	ErrEventNotFound = errors.New("webhook: webhook event not found")
	ErrInvalidKind   = errors.New("webhook: invalid webhook event kind")
)

// ---------------------------------------------------------------------------
// Kind is the fixed vocabulary of outbound notifications
// ---------------------------------------------------------------------------

// Kind is the fixed vocabulary of outbound notifications. Consumers key on
// these names; they never change meaning.
type Kind string

const (
	KindCampaignCreated   Kind = "campaign.created"
	KindCampaignUpdated   Kind = "campaign.updated"
	KindCampaignDeleted   Kind = "campaign.deleted"
	KindCreativeProcessed Kind = "creative.processed"
	KindSheetGenerated    Kind = "bulk.sheet.generated"
	KindReportGenerated   Kind = "report.generated"
	KindSyncCompleted     Kind = "integration.sync.completed"
	// KindErrorCritical is reserved for faults outside the known error
	// taxonomy; classified failures never produce it
	KindErrorCritical Kind = "error.critical"
)

// IsValid returns true if the kind is valid
func (k Kind) IsValid() bool {
	switch k {
	case KindCampaignCreated, KindCampaignUpdated, KindCampaignDeleted,
		KindCreativeProcessed, KindSheetGenerated, KindReportGenerated,
		KindSyncCompleted, KindErrorCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// Event is an immutable outbound notification record
// ---------------------------------------------------------------------------

// Event is an immutable outbound notification record. Once created it is
// never edited; delivery state lives on the deliverer, not the event.
type Event struct {
	ID uuid.UUID `json:"id"`
	// SourceEventID is the domain event that produced this notification;
	// it is the idempotency key that guarantees exactly-once creation
	SourceEventID uuid.UUID              `json:"source_event_id"`
	Kind          Kind                   `json:"kind"`
	OccurredAt    time.Time              `json:"occurred_at"`
	Payload       map[string]interface{} `json:"payload"`
	// RetryCount tracks delivery attempts beyond the first; the emitter
	// always records the event with zero
	RetryCount int `json:"retry_count"`
}

// NewEvent creates a webhook event from a source domain event
func NewEvent(sourceEventID uuid.UUID, kind Kind, occurredAt time.Time, payload map[string]interface{}) (*Event, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}

	return &Event{
		ID:            uuid.New(),
		SourceEventID: sourceEventID,
		Kind:          kind,
		OccurredAt:    occurredAt,
		Payload:       payload,
		RetryCount:    0,
	}, nil
}
