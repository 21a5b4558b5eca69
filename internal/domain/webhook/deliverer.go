package webhook

import (
	"context"

	"github.com/google/uuid"
)

// Deliverer sends webhook events to subscribed consumers. Delivery is
// fire-and-forget from the caller's point of view: a delivery failure
// never propagates back into the operation that produced the event.
type Deliverer interface {
	// Deliver sends one event to all subscribed endpoints
	Deliver(ctx context.Context, event *Event) error
}

// Repository defines the persistence port for webhook events
type Repository interface {
	// FindByID finds a webhook event by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// FindByKind returns recent events of one kind, newest first
	FindByKind(ctx context.Context, kind Kind, limit int) ([]Event, error)

	// Save persists a webhook event; events are append-only
	Save(ctx context.Context, e *Event) error
}
