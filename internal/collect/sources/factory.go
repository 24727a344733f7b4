package sources

import (
	"log/slog"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/core/config"
)

// New builds one collector from a source entry. Unknown or missing
// types return ok=false after a log line rather than an error, so one
// bad entry never prevents the rest of the batch from being collected.
func New(cfg config.SourceConfig, log *slog.Logger) (collect.Collector, bool) {
	switch cfg.Type {
	case "reddit":
		return NewReddit(cfg, log), true
	case "mastodon":
		return NewMastodon(cfg, log), true
	case "web", "rss":
		return NewWeb(cfg, log), true
	case "":
		log.Warn("skipping source entry with no type", "name", cfg.Name)
		return nil, false
	default:
		log.Warn("skipping source entry with unknown type",
			"name", cfg.Name, "type", cfg.Type)
		return nil, false
	}
}

// FromConfigs builds the collector set declared in configuration,
// skipping invalid entries.
func FromConfigs(cfgs []config.SourceConfig, log *slog.Logger) []collect.Collector {
	collectors := make([]collect.Collector, 0, len(cfgs))
	for _, cfg := range cfgs {
		if c, ok := New(cfg, log); ok {
			collectors = append(collectors, c)
		}
	}
	return collectors
}
