// Package retry implements the shared retry controller used by all
// platform calls. Adapters classify errors; this package decides whether
// and when to try again. No other code path retries.
package retry

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/adsync/backend/internal/domain/sync"
)

// Policy controls the retry behavior for one class of remote calls
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay
	MaxDelay time.Duration
	// Multiplier scales the delay after each failed attempt
	Multiplier float64
	// JitterFraction randomizes each delay by ±fraction to avoid
	// synchronized retries across concurrent jobs
	JitterFraction float64
	// AttemptTimeout bounds each individual attempt; zero disables it
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the policy applied when no platform profile matches
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
		AttemptTimeout: 30 * time.Second,
	}
}

// PolicyFor returns the retry profile tuned for a platform. The execution
// platform rate-limits aggressively and gets a higher delay cap; the
// campaign source recovers fast and gets linear, short delays.
func PolicyFor(platform sync.PlatformCode) Policy {
	switch platform {
	case sync.PlatformAmazonDSP:
		return Policy{
			MaxAttempts:    3,
			BaseDelay:      1 * time.Second,
			MaxDelay:       30 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.2,
			AttemptTimeout: 30 * time.Second,
		}
	case sync.PlatformKargo:
		return Policy{
			MaxAttempts:    3,
			BaseDelay:      500 * time.Millisecond,
			MaxDelay:       10 * time.Second,
			Multiplier:     1.0,
			JitterFraction: 0.2,
			AttemptTimeout: 15 * time.Second,
		}
	default:
		return DefaultPolicy()
	}
}

// Controller executes operations under a retry policy
type Controller struct {
	logger *zap.Logger
	rand   *rand.Rand
	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a retry controller
func NewController(logger *zap.Logger) *Controller {
	return &Controller{
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepCtx,
	}
}

// Execute runs op under the policy. It retries only errors classified as
// transient or attempt timeouts; validation and permanent errors return
// immediately. The returned count is the number of attempts made,
// including the first, so outcome logs can report it.
func (c *Controller) Execute(ctx context.Context, policy Policy, name string, op func(ctx context.Context) error) (int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = c.attempt(ctx, policy, op)
		if lastErr == nil {
			return attempt, nil
		}
		if !retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := c.backoff(policy, attempt)
		c.logger.Warn("transient failure, backing off",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr))

		if err := c.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}

	c.logger.Error("retries exhausted",
		zap.String("operation", name),
		zap.Int("attempts", maxAttempts),
		zap.Error(lastErr))
	return maxAttempts, lastErr
}

func (c *Controller) attempt(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if policy.AttemptTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
	defer cancel()
	return op(attemptCtx)
}

// retryable treats transient classifications and per-attempt timeouts as
// retry-eligible; a cancelled parent context is checked separately and
// never retried
func retryable(err error) bool {
	return sync.ClassifyReason(err) == sync.ReasonTransientRemote
}

func (c *Controller) backoff(policy Policy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= policy.Multiplier
	}
	if max := float64(policy.MaxDelay); policy.MaxDelay > 0 && delay > max {
		delay = max
	}
	if policy.JitterFraction > 0 {
		jitter := delay * policy.JitterFraction
		delay = delay - jitter + c.rand.Float64()*2*jitter
	}
	return time.Duration(delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
