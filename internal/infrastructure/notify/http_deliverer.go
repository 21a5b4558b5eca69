package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/webhook"
)

const defaultDeliveryTimeout = 10 * time.Second

// HTTPDeliverer posts webhook events as JSON to a fixed list of consumer
// endpoints. Each endpoint gets its own attempt; one slow or failing
// consumer does not block the others from receiving the event.
type HTTPDeliverer struct {
	endpoints  []string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPDeliverer creates an HTTP deliverer for the given consumer
// endpoints. timeout bounds a single delivery attempt.
func NewHTTPDeliverer(endpoints []string, timeout time.Duration, logger *zap.Logger) *HTTPDeliverer {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &HTTPDeliverer{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Deliver sends the event to every configured endpoint. Failures are
// collected and returned joined so the emitter can log them, but a
// failure against one endpoint never prevents delivery to the rest.
func (d *HTTPDeliverer) Deliver(ctx context.Context, event *webhook.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	var errs []error
	for _, endpoint := range d.endpoints {
		if err := d.deliverOne(ctx, endpoint, event, body); err != nil {
			d.logger.Warn("webhook delivery failed",
				zap.String("endpoint", endpoint),
				zap.String("webhook_event_id", event.ID.String()),
				zap.String("kind", event.Kind.String()),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *HTTPDeliverer) deliverOne(ctx context.Context, endpoint string, event *webhook.Event, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event-ID", event.ID.String())
	req.Header.Set("X-Webhook-Kind", event.Kind.String())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook to %s: %w", endpoint, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint %s returned status %d", endpoint, resp.StatusCode)
	}
	return nil
}

var _ webhook.Deliverer = (*HTTPDeliverer)(nil)
