package health

import (
	"context"
	"sync"
	"time"

	"github.com/tdngyn/skimmer/internal/core/domain"
	"github.com/tdngyn/skimmer/internal/pipeline"
)

// Monitor aggregates health from the pipeline's sources. Reports combine
// the strategy's derived health classification with a live reachability
// probe per collector.
type Monitor struct {
	sources []pipeline.Source

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport map[string]SourceReport
}

// NewMonitor creates a health monitor over the given source set.
func NewMonitor(sources []pipeline.Source) *Monitor {
	return &Monitor{
		sources:    sources,
		lastReport: make(map[string]SourceReport),
	}
}

// CheckHealth builds a per-source report. Live probes are rate limited
// to once per 30s so health polling never hammers the upstreams.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]SourceReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 30*time.Second && len(m.lastReport) > 0 {
		return m.lastReport
	}

	report := make(map[string]SourceReport, len(m.sources))
	for _, src := range m.sources {
		summary := src.Strategy.Summary()
		reachable, msg := src.Collector.HealthCheck(ctx)

		report[summary.Source] = SourceReport{
			Source:        summary.Source,
			Status:        summary.HealthStatus,
			TotalRequests: summary.TotalRequests,
			SuccessRate:   summary.SuccessRate,
			CurrentDelay:  summary.CurrentDelay.String(),
			Reachable:     reachable,
			Message:       msg,
		}
		pipeline.SourceHealthGauge.WithLabelValues(summary.Source).
			Set(float64(summary.HealthStatus))
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

// Aggregate folds a report into one service-level status: any
// unreachable or unhealthy source is critical only when every source is
// down; otherwise degraded.
func Aggregate(report map[string]SourceReport) Status {
	if len(report) == 0 {
		return StatusHealthy
	}

	down := 0
	degraded := 0
	for _, r := range report {
		if !r.Reachable || r.Status == domain.SourceUnhealthy {
			down++
		} else if r.Status == domain.SourceDegraded {
			degraded++
		}
	}

	switch {
	case down == len(report):
		return StatusCritical
	case down > 0 || degraded > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
