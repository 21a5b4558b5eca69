// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics provides business metrics for the synchronization engine.
// It tracks sync job outcomes, per-item push results, retry pressure,
// bulk row throughput and webhook emission.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	jobsSubmittedTotal *Counter
	jobsCompletedTotal *Counter
	itemsTotal         *Counter
	retryAttemptsTotal *Counter
	bulkRowsTotal      *Counter
	webhookEventsTotal *Counter

	// Histogram metrics
	jobDuration *Histogram

	// Gauge metrics (point-in-time values)
	activeJobs *Gauge
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	sm.jobsSubmittedTotal, err = NewCounter(
		cfg.Meter,
		"adsync_jobs_submitted_total",
		"Total number of sync jobs admitted",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	sm.jobsCompletedTotal, err = NewCounter(
		cfg.Meter,
		"adsync_jobs_completed_total",
		"Total number of sync jobs reaching a terminal state",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	sm.itemsTotal, err = NewCounter(
		cfg.Meter,
		"adsync_items_total",
		"Total number of sync item outcomes recorded",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	sm.retryAttemptsTotal, err = NewCounter(
		cfg.Meter,
		"adsync_retry_attempts_total",
		"Total number of remote call attempts beyond the first",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	sm.bulkRowsTotal, err = NewCounter(
		cfg.Meter,
		"adsync_bulk_rows_total",
		"Total number of bulk sheet rows processed",
		"{rows}",
	)
	if err != nil {
		return nil, err
	}

	sm.webhookEventsTotal, err = NewCounter(
		cfg.Meter,
		"adsync_webhook_events_total",
		"Total number of webhook events emitted",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	sm.jobDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "adsync_job_duration_seconds",
		Description: "Wall-clock duration of sync jobs from start to terminal state",
		Unit:        "s",
		Boundaries:  []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	if err != nil {
		return nil, err
	}

	sm.activeJobs, err = NewGauge(
		cfg.Meter,
		"adsync_active_jobs",
		"Number of sync jobs currently running",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Sync Job Metrics
// =============================================================================

// RecordJobSubmitted records an admitted sync job.
func (sm *SyncMetrics) RecordJobSubmitted(ctx context.Context, platform, direction string) {
	sm.jobsSubmittedTotal.Inc(ctx,
		AttrPlatform.String(platform),
		AttrDirection.String(direction),
	)
}

// RecordJobCompleted records a sync job reaching a terminal state
// along with its duration.
func (sm *SyncMetrics) RecordJobCompleted(ctx context.Context, platform, direction, state string, duration time.Duration) {
	sm.jobsCompletedTotal.Inc(ctx,
		AttrPlatform.String(platform),
		AttrDirection.String(direction),
		AttrJobState.String(state),
	)
	sm.jobDuration.RecordDuration(ctx, duration,
		AttrPlatform.String(platform),
		AttrDirection.String(direction),
	)
}

// RecordItemOutcome records the terminal state of a single sync item.
// Reason is empty for succeeded items.
func (sm *SyncMetrics) RecordItemOutcome(ctx context.Context, platform, kind, state, reason string) {
	attrs := []attribute.KeyValue{
		AttrPlatform.String(platform),
		AttrItemKind.String(kind),
		AttrJobState.String(state),
	}
	if reason != "" {
		attrs = append(attrs, AttrReason.String(reason))
	}
	sm.itemsTotal.Inc(ctx, attrs...)
}

// RecordRetries records remote call attempts that went beyond the first try.
func (sm *SyncMetrics) RecordRetries(ctx context.Context, platform string, attempts int) {
	if attempts <= 1 {
		return
	}
	sm.retryAttemptsTotal.Add(ctx, int64(attempts-1),
		AttrPlatform.String(platform),
	)
}

// RecordActiveJobs records the number of jobs currently running.
func (sm *SyncMetrics) RecordActiveJobs(ctx context.Context, count int64) {
	sm.activeJobs.Record(ctx, count)
}

// =============================================================================
// Bulk Transfer Metrics
// =============================================================================

// RecordBulkRows records processed bulk sheet rows by outcome.
func (sm *SyncMetrics) RecordBulkRows(ctx context.Context, direction, rowState string, count int64) {
	if count <= 0 {
		return
	}
	sm.bulkRowsTotal.Add(ctx, count,
		AttrDirection.String(direction),
		AttrRowState.String(rowState),
	)
}

// =============================================================================
// Webhook Metrics
// =============================================================================

// RecordWebhookEvent records an emitted webhook event.
func (sm *SyncMetrics) RecordWebhookEvent(ctx context.Context, kind string, eventID uuid.UUID) {
	sm.webhookEventsTotal.Inc(ctx,
		AttrEventKind.String(kind),
	)
	sm.logger.Debug("webhook event recorded",
		zap.String("event_kind", kind),
		zap.String("event_id", eventID.String()),
	)
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
