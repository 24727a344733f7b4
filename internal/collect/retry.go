package collect

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tdngyn/skimmer/internal/core/domain"
)

// RetryConfig defines retry behavior for one collector.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// 0 means exactly one attempt and no backoff sleep ever occurs.
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64

	// RateLimitBuffer is added on top of a server-supplied Retry-After
	// wait, giving the upstream's limiter window time to roll over.
	RateLimitBuffer time.Duration
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:        3,
	BaseDelay:         1 * time.Second,
	MaxDelay:          60 * time.Second,
	BackoffMultiplier: 2.0,
}

// CollectWithRetry runs one collection through the retry state machine:
//
//   - success returns immediately
//   - a rate limit waits the server-supplied interval plus the
//     configured buffer, not the backoff
//   - a non-retryable error propagates without spending budget
//   - retryable errors back off exponentially until the budget is spent,
//     then the last observed error propagates
//
// All sleeps abort on ctx cancellation, which propagates as ctx.Err()
// rather than a collector error.
func CollectWithRetry(ctx context.Context, c Collector, maxItems int, cfg RetryConfig) ([]domain.Item, error) {
	var lastErr error

	attempts := cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := c.CollectBatch(ctx, maxItems)
		if err == nil {
			return items, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		err = wrapAttemptError(c.SourceName(), err)
		lastErr = err

		var rl *RateLimitError
		if errors.As(err, &rl) {
			if attempt == attempts-1 {
				break
			}
			if serr := Sleep(ctx, rl.RetryAfter+cfg.RateLimitBuffer); serr != nil {
				return nil, serr
			}
			continue
		}

		if !Retryable(err) {
			return nil, err
		}

		if attempt == attempts-1 {
			break
		}
		if serr := Sleep(ctx, backoffDelay(attempt, cfg)); serr != nil {
			return nil, serr
		}
	}

	if lastErr == nil {
		// Unreachable with a well-behaved collector; synthesized so the
		// caller never sees a nil error after exhaustion.
		lastErr = NewPermanentError(c.SourceName(), "retry budget exhausted", nil)
	}
	return nil, markExhausted(lastErr)
}

// CollectAdaptive wraps CollectWithRetry with the adaptive strategy:
// a source that is not healthy pays its current pacing delay before the
// attempt, and the outcome is recorded either way.
func CollectAdaptive(ctx context.Context, c Collector, maxItems int, cfg RetryConfig, strat *Strategy) ([]domain.Item, error) {
	if strat.Health() != domain.SourceHealthy {
		if err := Sleep(ctx, strat.CurrentDelay()); err != nil {
			return nil, err
		}
	}

	items, err := CollectWithRetry(ctx, c, maxItems, cfg)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// A cancelled collection says nothing about source health.
		return nil, err
	}
	strat.RecordAttempt(err == nil)
	return items, err
}

// markExhausted turns an unmapped or generic retryable failure into a
// permanent one after the budget is spent; typed errors propagate as the
// last observed cause so callers can inspect them.
func markExhausted(err error) error {
	var ce *CollectorError
	if errors.As(err, &ce) && ce.Retryable && ce.Message == "collection attempt failed" {
		return &CollectorError{Source: ce.Source, Message: "retries exhausted", Retryable: false, Err: ce.Err}
	}
	return err
}

func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	mult := cfg.BackoffMultiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := float64(cfg.BaseDelay) * math.Pow(mult, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

// Sleep suspends for d, aborting early with ctx.Err() on cancellation.
// All backoff and pacing waits in the core go through here.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
