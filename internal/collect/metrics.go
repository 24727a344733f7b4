package collect

import (
	"sync"
	"time"
)

// SessionMetrics accumulates attempt outcomes for one collector instance.
// It is owned by that instance and updated only from its own (sequential)
// retry loop; the lock exists so read-only snapshots can be taken from
// the health monitor without racing.
type SessionMetrics struct {
	mu sync.RWMutex

	requestCount      int
	successCount      int
	errorCount        int
	consecutiveErrors int
	lastErrorAt       time.Time
}

// MetricsSnapshot is the read-only projection of SessionMetrics.
type MetricsSnapshot struct {
	RequestCount      int
	SuccessCount      int
	ErrorCount        int
	ConsecutiveErrors int
	LastErrorAt       time.Time
}

// SuccessRate returns successes over total requests, 1.0 when no request
// has been made yet.
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.RequestCount == 0 {
		return 1.0
	}
	return float64(s.SuccessCount) / float64(s.RequestCount)
}

// RecordAttempt registers one attempt outcome. A success always resets
// the consecutive-error streak. request_count == success_count +
// error_count holds by construction: this is the only mutation path.
func (m *SessionMetrics) RecordAttempt(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestCount++
	if success {
		m.successCount++
		m.consecutiveErrors = 0
	} else {
		m.errorCount++
		m.consecutiveErrors++
		m.lastErrorAt = time.Now()
	}
}

// Snapshot returns a copy of the current counters.
func (m *SessionMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		RequestCount:      m.requestCount,
		SuccessCount:      m.successCount,
		ErrorCount:        m.errorCount,
		ConsecutiveErrors: m.consecutiveErrors,
		LastErrorAt:       m.lastErrorAt,
	}
}
