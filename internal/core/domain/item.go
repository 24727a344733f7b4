package domain

import "time"

// Item is the unified shape every platform-specific record is converted
// into before leaving the collection core. Immutable once produced.
type Item struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	URL       string            `json:"url"`
	Author    string            `json:"author"`
	CreatedAt time.Time         `json:"created_at"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Age returns how old the item is since publication.
func (i *Item) Age() time.Duration {
	return time.Since(i.CreatedAt)
}

// DeduplicateByID removes items sharing an ID, keeping the first
// occurrence. Input order is preserved.
func DeduplicateByID(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
