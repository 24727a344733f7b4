package domain

// SourceHealth classifies a source's recent reliability. It is always
// derived from session metrics, never stored on its own.
type SourceHealth int

const (
	SourceHealthy SourceHealth = iota
	SourceDegraded
	SourceUnhealthy
)

// String returns the lowercase name used in logs and health reports.
func (h SourceHealth) String() string {
	switch h {
	case SourceHealthy:
		return "healthy"
	case SourceDegraded:
		return "degraded"
	case SourceUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the health status as its string name.
func (h SourceHealth) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}
