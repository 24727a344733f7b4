// Package health aggregates per-source health for observability and
// serves it over HTTP alongside prometheus metrics.
package health

import (
	"github.com/tdngyn/skimmer/internal/core/domain"
)

// Status is the aggregate service status.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// SourceReport describes one source's observed reliability.
type SourceReport struct {
	Source        string              `json:"source"`
	Status        domain.SourceHealth `json:"status"`
	TotalRequests int                 `json:"total_requests"`
	SuccessRate   float64             `json:"success_rate"`
	CurrentDelay  string              `json:"current_delay"`
	Reachable     bool                `json:"reachable"`
	Message       string              `json:"message"`

	// ArchivedItems is filled on /health/detailed when an archive is
	// configured.
	ArchivedItems int `json:"archived_items,omitempty"`
}
