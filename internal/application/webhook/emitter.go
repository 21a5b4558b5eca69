// Package webhookapp turns domain events into outbound webhook
// notifications. The emitter subscribes to the event bus, persists one
// webhook event per domain event and hands it to the deliverer without
// blocking the operation that produced it.
package webhookapp

import (
	"context"
	"encoding/json"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/bulk"
	"github.com/adsync/backend/internal/domain/campaign"
	"github.com/adsync/backend/internal/domain/shared"
	domainsync "github.com/adsync/backend/internal/domain/sync"
	"github.com/adsync/backend/internal/domain/webhook"
)

// deliveryTimeout bounds a single outbound delivery attempt
const deliveryTimeout = 10 * time.Second

// kindBySource maps domain event types to the webhook vocabulary.
// error.critical is absent on purpose: it is derived, never sourced.
var kindBySource = map[string]webhook.Kind{
	campaign.EventTypeCampaignCreated:   webhook.KindCampaignCreated,
	campaign.EventTypeCampaignUpdated:   webhook.KindCampaignUpdated,
	campaign.EventTypeCampaignDeleted:   webhook.KindCampaignDeleted,
	campaign.EventTypeCreativeProcessed: webhook.KindCreativeProcessed,
	bulk.EventTypeSheetGenerated:        webhook.KindSheetGenerated,
	bulk.EventTypeReportGenerated:       webhook.KindReportGenerated,
	domainsync.EventTypeSyncCompleted:   webhook.KindSyncCompleted,
}

// Emitter converts domain events into persisted webhook events and
// dispatches them. It implements shared.EventHandler; wrap it with the
// idempotent handler so redelivered bus events never produce duplicate
// notifications.
type Emitter struct {
	events    webhook.Repository
	deliverer webhook.Deliverer
	logger    *zap.Logger

	wg stdsync.WaitGroup
}

// NewEmitter creates a webhook emitter
func NewEmitter(events webhook.Repository, deliverer webhook.Deliverer, logger *zap.Logger) *Emitter {
	return &Emitter{
		events:    events,
		deliverer: deliverer,
		logger:    logger,
	}
}

// EventTypes returns the domain event types the emitter subscribes to
func (e *Emitter) EventTypes() []string {
	types := make([]string, 0, len(kindBySource))
	for t := range kindBySource {
		types = append(types, t)
	}
	return types
}

// Handle persists a webhook event for the domain event and dispatches it.
// A sync completion outside the known failure taxonomy additionally
// escalates to error.critical.
func (e *Emitter) Handle(ctx context.Context, event shared.DomainEvent) error {
	kind, ok := kindBySource[event.EventType()]
	if !ok {
		return nil
	}

	payload, err := eventPayload(event)
	if err != nil {
		return err
	}

	record, err := webhook.NewEvent(event.EventID(), kind, event.OccurredAt(), payload)
	if err != nil {
		return err
	}
	if err := e.events.Save(ctx, record); err != nil {
		return err
	}
	e.dispatch(record)

	if sc, ok := event.(*domainsync.SyncCompletedEvent); ok && sc.Reason == string(domainsync.ReasonInternal) {
		e.escalate(ctx, sc, payload)
	}
	return nil
}

// Get finds a webhook event by ID
func (e *Emitter) Get(ctx context.Context, id uuid.UUID) (*webhook.Event, error) {
	return e.events.FindByID(ctx, id)
}

// ListRecent returns recent webhook events of one kind, newest first
func (e *Emitter) ListRecent(ctx context.Context, kind webhook.Kind, limit int) ([]webhook.Event, error) {
	if !kind.IsValid() {
		return nil, webhook.ErrInvalidKind
	}
	return e.events.FindByKind(ctx, kind, limit)
}

// Stop waits for in-flight deliveries to finish or the context to expire
func (e *Emitter) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// escalate emits an error.critical notification derived from an internal
// sync failure. The source ID is derived deterministically so redelivery
// of the sync event cannot fan out into duplicate escalations.
func (e *Emitter) escalate(ctx context.Context, sc *domainsync.SyncCompletedEvent, payload map[string]interface{}) {
	sourceID := uuid.NewSHA1(sc.EventID(), []byte(webhook.KindErrorCritical))

	record, err := webhook.NewEvent(sourceID, webhook.KindErrorCritical, sc.OccurredAt(), payload)
	if err != nil {
		e.logger.Error("failed to build critical escalation",
			zap.String("source_event_id", sc.EventID().String()), zap.Error(err))
		return
	}
	if err := e.events.Save(ctx, record); err != nil {
		e.logger.Error("failed to save critical escalation",
			zap.String("source_event_id", sc.EventID().String()), zap.Error(err))
		return
	}
	e.dispatch(record)
}

// dispatch hands the event to the deliverer on its own goroutine. A
// delivery failure is logged and never reaches the producing operation.
func (e *Emitter) dispatch(record *webhook.Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := e.deliverer.Deliver(ctx, record); err != nil {
			e.logger.Warn("webhook delivery failed",
				zap.String("webhook_event_id", record.ID.String()),
				zap.String("kind", record.Kind.String()),
				zap.Error(err))
		}
	}()
}

// eventPayload renders the concrete domain event as a generic payload map
func eventPayload(event shared.DomainEvent) (map[string]interface{}, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	payload := make(map[string]interface{})
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

var _ shared.EventHandler = (*Emitter)(nil)
