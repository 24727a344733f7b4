// Package redis provides the cross-run seen-item store the downstream
// deduplication stage consumes. The collection core itself persists
// nothing; this is an optional collaborator wired by the pipeline.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Enabled reports whether a seen store was configured at all.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// SeenStore remembers item IDs across pipeline runs so the dedup stage
// can drop repeats. Entries expire after the configured TTL.
type SeenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeenStore creates a seen store and verifies connectivity.
func NewSeenStore(cfg Config, ttl time.Duration) (*SeenStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &SeenStore{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (s *SeenStore) Close() error {
	return s.rdb.Close()
}

func seenKey(id string) string {
	return fmt.Sprintf("seen_item:%s", id)
}

// MarkNew atomically records the given IDs and reports which of them had
// not been seen before. Already-seen IDs keep their original TTL.
func (s *SeenStore) MarkNew(ctx context.Context, ids []string) (map[string]bool, error) {
	fresh := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return fresh, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.BoolCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.SetNX(ctx, seenKey(id), "1", s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("setnx pipeline failed: %w", err)
	}

	for i, id := range ids {
		fresh[id] = cmds[i].Val()
	}
	return fresh, nil
}

// Forget removes IDs from the store, mainly for tests and manual resets.
func (s *SeenStore) Forget(ctx context.Context, ids []string) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = seenKey(id)
	}
	return s.rdb.Del(ctx, keys...).Err()
}
