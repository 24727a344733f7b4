// Package collect implements the resilient content-collection core:
// a typed error taxonomy, a retry/backoff execution loop, and an
// adaptive per-source pacing and health model.
//
// Each collector instance owns its state (HTTP client, session metrics)
// and is driven sequentially; separate collectors run as independent
// tasks so one source's rate limiting never throttles another's.
package collect

import (
	"context"

	"github.com/tdngyn/skimmer/internal/core/domain"
)

// Collector is the capability every concrete source type implements.
// The retry engine is generic over this interface.
type Collector interface {
	// SourceName returns the identifier used in errors, logs and metrics.
	SourceName() string

	// CollectBatch performs one collection sweep and returns standardized
	// items, capped at maxItems (0 means the collector's configured cap).
	// Failures cross this boundary only as *CollectorError or
	// *RateLimitError.
	CollectBatch(ctx context.Context, maxItems int) ([]domain.Item, error)

	// HealthCheck issues one minimal live request and reports whether the
	// source is reachable, with a human-readable message either way.
	HealthCheck(ctx context.Context) (bool, string)

	// Close releases the collector's owned resources.
	Close() error
}
