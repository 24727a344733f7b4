package collect

import (
	"math"
	"time"

	"github.com/tdngyn/skimmer/internal/core/domain"
)

// AdaptiveParams tunes per-source pacing and health classification.
// Immutable after construction; per-source-type defaults are data, so a
// new source type means a new row in DefaultParams, not new code paths.
type AdaptiveParams struct {
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	BackoffMultiplier    float64
	MaxRequestsPerWindow int
	RateLimitBuffer      time.Duration

	// Health thresholds. Tunable rather than hard-coded: the exact
	// cutoffs differ per deployment.
	HealthyMinSuccessRate      float64
	UnhealthyMaxSuccessRate    float64
	UnhealthyConsecutiveErrors int
}

// DefaultParams holds per-source-type pacing defaults. Mastodon's public
// API enforces a strict 300 req / 5 min limit, so it gets a larger base
// delay and buffer than Reddit's listing endpoints or plain web feeds.
var DefaultParams = map[string]AdaptiveParams{
	"reddit": {
		BaseDelay:            2 * time.Second,
		MaxDelay:             5 * time.Minute,
		BackoffMultiplier:    2.0,
		MaxRequestsPerWindow: 60,
		RateLimitBuffer:      5 * time.Second,
	},
	"mastodon": {
		BaseDelay:            5 * time.Second,
		MaxDelay:             10 * time.Minute,
		BackoffMultiplier:    2.0,
		MaxRequestsPerWindow: 30,
		RateLimitBuffer:      15 * time.Second,
	},
	"web": {
		BaseDelay:            1 * time.Second,
		MaxDelay:             2 * time.Minute,
		BackoffMultiplier:    2.0,
		MaxRequestsPerWindow: 120,
		RateLimitBuffer:      2 * time.Second,
	},
}

// SweepPause returns the wait between successive requests inside one
// sweep: the base delay, floored so a sweep alone can never exceed
// MaxRequestsPerWindow requests per minute against one upstream.
func (p AdaptiveParams) SweepPause() time.Duration {
	pause := p.BaseDelay
	if p.MaxRequestsPerWindow > 0 {
		if floor := time.Minute / time.Duration(p.MaxRequestsPerWindow); floor > pause {
			pause = floor
		}
	}
	return pause
}

// ParamsFor returns the defaults for a source type, falling back to the
// web profile for unknown types, with health thresholds filled in.
func ParamsFor(sourceType string) AdaptiveParams {
	p, ok := DefaultParams[sourceType]
	if !ok {
		p = DefaultParams["web"]
	}
	return p.withHealthDefaults()
}

func (p AdaptiveParams) withHealthDefaults() AdaptiveParams {
	if p.HealthyMinSuccessRate == 0 {
		p.HealthyMinSuccessRate = 0.9
	}
	if p.UnhealthyMaxSuccessRate == 0 {
		p.UnhealthyMaxSuccessRate = 0.5
	}
	if p.UnhealthyConsecutiveErrors == 0 {
		p.UnhealthyConsecutiveErrors = 5
	}
	if p.BackoffMultiplier == 0 {
		p.BackoffMultiplier = 2.0
	}
	return p
}

// Strategy decides how aggressively to poll one source and classifies
// its health. All decisions derive from the session metrics; health is
// recomputed on every query and never stored, so it cannot drift.
type Strategy struct {
	source  string
	params  AdaptiveParams
	metrics *SessionMetrics
}

// NewStrategy builds a strategy around a fresh metrics counter.
func NewStrategy(source string, params AdaptiveParams) *Strategy {
	return &Strategy{
		source:  source,
		params:  params.withHealthDefaults(),
		metrics: &SessionMetrics{},
	}
}

// Source returns the source name the strategy paces.
func (s *Strategy) Source() string {
	return s.source
}

// Params returns the immutable pacing parameters.
func (s *Strategy) Params() AdaptiveParams {
	return s.params
}

// CurrentDelay returns the pacing wait before the next request. It grows
// from BaseDelay with the same exponential law as the retry backoff as
// consecutive errors accumulate, clamped to MaxDelay.
func (s *Strategy) CurrentDelay() time.Duration {
	snap := s.metrics.Snapshot()
	return scaledDelay(s.params, snap.ConsecutiveErrors)
}

// Health classifies the source from its session metrics.
func (s *Strategy) Health() domain.SourceHealth {
	return classifyHealth(s.params, s.metrics.Snapshot())
}

// RecordAttempt feeds one attempt outcome into the session metrics.
func (s *Strategy) RecordAttempt(success bool) {
	s.metrics.RecordAttempt(success)
}

// Summary is the observability projection of a strategy. Building one
// never mutates state.
type Summary struct {
	Source        string              `json:"source"`
	TotalRequests int                 `json:"total_requests"`
	SuccessRate   float64             `json:"success_rate"`
	HealthStatus  domain.SourceHealth `json:"health_status"`
	CurrentDelay  time.Duration       `json:"current_delay"`
}

// Summary returns the read-only metrics projection for this source.
func (s *Strategy) Summary() Summary {
	snap := s.metrics.Snapshot()
	return Summary{
		Source:        s.source,
		TotalRequests: snap.RequestCount,
		SuccessRate:   snap.SuccessRate(),
		HealthStatus:  classifyHealth(s.params, snap),
		CurrentDelay:  scaledDelay(s.params, snap.ConsecutiveErrors),
	}
}

func classifyHealth(p AdaptiveParams, snap MetricsSnapshot) domain.SourceHealth {
	rate := snap.SuccessRate()

	if snap.ConsecutiveErrors >= p.UnhealthyConsecutiveErrors ||
		(snap.RequestCount > 0 && rate < p.UnhealthyMaxSuccessRate) {
		return domain.SourceUnhealthy
	}
	if snap.ConsecutiveErrors == 0 && rate >= p.HealthyMinSuccessRate {
		return domain.SourceHealthy
	}
	return domain.SourceDegraded
}

func scaledDelay(p AdaptiveParams, consecutiveErrors int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(consecutiveErrors))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}
