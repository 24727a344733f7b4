package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tdngyn/skimmer/internal/core/domain"
)

// ItemRepo persists standardized items.
type ItemRepo struct {
	db *DB
}

// NewItemRepo creates an item repository.
func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

type itemRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Content     string    `db:"content"`
	URL         string    `db:"url"`
	Author      string    `db:"author"`
	Source      string    `db:"source"`
	CreatedAt   time.Time `db:"created_at"`
	CollectedAt time.Time `db:"collected_at"`
	Metadata    []byte    `db:"metadata"`
}

func (r itemRow) toDomain() (domain.Item, error) {
	it := domain.Item{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		URL:       r.URL,
		Author:    r.Author,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &it.Metadata); err != nil {
			return domain.Item{}, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return it, nil
}

// SaveBatch upserts items; an already-archived ID is left untouched so
// the first collected version wins, matching the dedup policy.
func (r *ItemRepo) SaveBatch(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	const q = `
		INSERT INTO items (id, title, content, url, author, source, created_at, metadata)
		VALUES (:id, :title, :content, :url, :author, :source, :created_at, :metadata)
		ON CONFLICT (id) DO NOTHING`

	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		meta, err := json.Marshal(it.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", it.ID, err)
		}
		if it.Metadata == nil {
			meta = []byte("{}")
		}
		rows = append(rows, itemRow{
			ID:        it.ID,
			Title:     it.Title,
			Content:   it.Content,
			URL:       it.URL,
			Author:    it.Author,
			Source:    it.Source,
			CreatedAt: it.CreatedAt,
			Metadata:  meta,
		})
	}

	if _, err := r.db.NamedExecContext(ctx, q, rows); err != nil {
		return fmt.Errorf("failed to save items: %w", err)
	}
	return nil
}

// Recent returns the newest archived items for a source.
func (r *ItemRepo) Recent(ctx context.Context, source string, limit int) ([]domain.Item, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
		SELECT id, title, content, url, author, source, created_at, collected_at, metadata
		FROM items WHERE source = $1 ORDER BY created_at DESC LIMIT $2`

	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, q, source, limit); err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		it, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// Count returns the number of archived items for a source.
func (r *ItemRepo) Count(ctx context.Context, source string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM items WHERE source = $1`, source); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}
