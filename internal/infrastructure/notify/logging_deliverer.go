// Package notify provides webhook delivery backends.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/webhook"
)

// LoggingDeliverer writes webhook events to the structured log instead of
// calling consumer endpoints. It is the default backend for environments
// without subscribed consumers.
type LoggingDeliverer struct {
	logger *zap.Logger
}

// NewLoggingDeliverer creates a logging deliverer
func NewLoggingDeliverer(logger *zap.Logger) *LoggingDeliverer {
	return &LoggingDeliverer{logger: logger}
}

// Deliver logs the event at info level
func (d *LoggingDeliverer) Deliver(_ context.Context, event *webhook.Event) error {
	d.logger.Info("webhook event",
		zap.String("webhook_event_id", event.ID.String()),
		zap.String("source_event_id", event.SourceEventID.String()),
		zap.String("kind", event.Kind.String()),
		zap.Time("occurred_at", event.OccurredAt),
		zap.Any("payload", event.Payload))
	return nil
}

var _ webhook.Deliverer = (*LoggingDeliverer)(nil)
