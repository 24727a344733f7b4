// Package pipeline orchestrates collection runs: it fans out the
// configured collectors as independent tasks, aggregates their items
// into a CollectionResult, and hands the result to the optional dedup
// and archive collaborators.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/core/domain"
)

// SeenStore filters out items already collected in earlier runs.
type SeenStore interface {
	MarkNew(ctx context.Context, ids []string) (map[string]bool, error)
}

// Archive persists collected items for downstream stages.
type Archive interface {
	SaveBatch(ctx context.Context, items []domain.Item) error
}

// Source pairs a collector with its retry settings and adaptive
// strategy. Each source owns disjoint state, so sources never share
// locks at collection time.
type Source struct {
	Collector collect.Collector
	Retry     collect.RetryConfig
	Strategy  *collect.Strategy
	MaxItems  int
}

// Runner executes collection runs over a fixed source set.
type Runner struct {
	sources []Source
	seen    SeenStore // optional
	archive Archive   // optional
	log     *slog.Logger
}

// NewRunner creates a runner. seen and archive may be nil.
func NewRunner(sources []Source, seen SeenStore, archive Archive, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{sources: sources, seen: seen, archive: archive, log: log}
}

// Sources returns the runner's source set, for health reporting.
func (r *Runner) Sources() []Source {
	return r.sources
}

type sourceResult struct {
	name  string
	items []domain.Item
	err   error
}

// Collect runs one collection sweep across all sources concurrently.
// The returned result is always well-formed: a run in which every source
// fails carries zero items and per-source failure messages, not an
// error. Collect only returns an error when the context is cancelled.
func (r *Runner) Collect(ctx context.Context) (*domain.CollectionResult, error) {
	result := &domain.CollectionResult{
		RunID:     uuid.NewString(),
		Items:     []domain.Item{},
		Failed:    make(map[string]string),
		StartedAt: time.Now().UTC(),
	}

	results := make(chan sourceResult, len(r.sources))
	var wg sync.WaitGroup

	for _, src := range r.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			start := time.Now()
			items, err := collect.CollectAdaptive(ctx, src.Collector, src.MaxItems, src.Retry, src.Strategy)
			CollectLatency.WithLabelValues(src.Collector.SourceName()).
				Observe(time.Since(start).Seconds())

			results <- sourceResult{name: src.Collector.SourceName(), items: items, err: err}
		}(src)
	}

	wg.Wait()
	close(results)

	var cancelled error
	for res := range results {
		if res.err != nil {
			if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
				cancelled = res.err
				continue
			}
			result.SourcesFailed++
			result.Failed[res.name] = res.err.Error()
			CollectionsTotal.WithLabelValues(res.name, "error").Inc()
			r.log.Error("source collection failed", "source", res.name, "error", res.err)
			continue
		}
		result.SourcesProcessed++
		result.Items = append(result.Items, res.items...)
		CollectionsTotal.WithLabelValues(res.name, "success").Inc()
		ItemsCollected.WithLabelValues(res.name).Add(float64(len(res.items)))
		r.log.Info("source collected", "source", res.name, "items", len(res.items))
	}

	if cancelled != nil {
		return nil, cancelled
	}

	result.Items = domain.DeduplicateByID(result.Items)

	if r.seen != nil && len(result.Items) > 0 {
		result.Items = r.filterSeen(ctx, result.Items)
	}

	result.TotalItems = len(result.Items)
	result.FinishedAt = time.Now().UTC()

	if r.archive != nil && len(result.Items) > 0 {
		if err := r.archive.SaveBatch(ctx, result.Items); err != nil {
			// Archival is best-effort; the result still goes downstream.
			r.log.Error("failed to archive items", "error", err)
		}
	}

	r.log.Info("collection run finished",
		"run_id", result.RunID,
		"sources_processed", result.SourcesProcessed,
		"sources_failed", result.SourcesFailed,
		"total_items", result.TotalItems,
		"duration", result.FinishedAt.Sub(result.StartedAt))

	return result, nil
}

func (r *Runner) filterSeen(ctx context.Context, items []domain.Item) []domain.Item {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	fresh, err := r.seen.MarkNew(ctx, ids)
	if err != nil {
		// Dedup store trouble must not lose a run's items.
		r.log.Warn("seen store unavailable, skipping cross-run dedup", "error", err)
		return items
	}

	out := items[:0]
	for _, it := range items {
		if fresh[it.ID] {
			out = append(out, it)
		} else {
			ItemsDeduplicated.WithLabelValues(it.Source).Inc()
		}
	}
	return out
}

// Close releases every collector's owned resources.
func (r *Runner) Close() error {
	var errs []error
	for _, src := range r.sources {
		if err := src.Collector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
