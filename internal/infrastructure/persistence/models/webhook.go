package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adsync/backend/internal/domain/webhook"
)

// WebhookEventModel is the persistence model for outbound webhook events.
// Events are append-only; the unique index on source_event_id is what makes
// creation exactly-once per domain event.
type WebhookEventModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	SourceEventID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_webhook_events_source"`
	Kind          string    `gorm:"type:varchar(40);not null;index"`
	OccurredAt    time.Time `gorm:"not null;index"`
	PayloadJSON   string    `gorm:"type:jsonb;column:payload"`
	RetryCount    int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain Event.
func (m *WebhookEventModel) ToDomain() (*webhook.Event, error) {
	e := &webhook.Event{
		ID:            m.ID,
		SourceEventID: m.SourceEventID,
		Kind:          webhook.Kind(m.Kind),
		OccurredAt:    m.OccurredAt,
		Payload:       map[string]interface{}{},
		RetryCount:    m.RetryCount,
	}

	if m.PayloadJSON != "" {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("webhook event %s: decode payload: %w", m.ID, err)
		}
		e.Payload = payload
	}

	return e, nil
}

// FromDomain populates the persistence model from a domain Event.
func (m *WebhookEventModel) FromDomain(e *webhook.Event) {
	m.ID = e.ID
	m.SourceEventID = e.SourceEventID
	m.Kind = e.Kind.String()
	m.OccurredAt = e.OccurredAt
	m.RetryCount = e.RetryCount

	if jsonBytes, err := json.Marshal(e.Payload); err == nil {
		m.PayloadJSON = string(jsonBytes)
	} else {
		m.PayloadJSON = "{}"
	}
}

// WebhookEventModelFromDomain creates a new persistence model from a domain Event.
func WebhookEventModelFromDomain(e *webhook.Event) *WebhookEventModel {
	m := &WebhookEventModel{}
	m.FromDomain(e)
	return m
}
