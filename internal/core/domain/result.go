package domain

import "time"

// CollectionResult is the sole contract between the collection core and
// the downstream pipeline stages. A run that fails entirely still yields
// a well-formed result with zero items and populated failure metadata.
type CollectionResult struct {
	RunID            string            `json:"run_id"`
	Items            []Item            `json:"items"`
	SourcesProcessed int               `json:"sources_processed"`
	SourcesFailed    int               `json:"sources_failed"`
	TotalItems       int               `json:"total_items_collected"`
	Failed           map[string]string `json:"failed,omitempty"` // source -> error message
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       time.Time         `json:"finished_at"`
}
