package config

import (
	"time"

	"github.com/tdngyn/skimmer/internal/collect"
	redisclient "github.com/tdngyn/skimmer/internal/infra/redis"
	"github.com/tdngyn/skimmer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Pipeline PipelineConfig     `yaml:"pipeline"`
	Sources  []SourceConfig     `yaml:"sources"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PipelineConfig holds collection-run scheduling settings.
type PipelineConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 = run once and exit
	SeenTTL  time.Duration `yaml:"seen_ttl"` // cross-run dedup retention
}

// SourceConfig declares one content source. Unset fields fall back to
// per-source-type defaults in the loader.
type SourceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // reddit, mastodon, web

	// Targets, per type.
	Subreddits []string `yaml:"subreddits"`
	Instances  []string `yaml:"instances"`
	Hashtags   []string `yaml:"hashtags"`
	Feeds      []string `yaml:"feeds"`

	Listing  string `yaml:"listing"`   // reddit: hot, new, top
	Limit    int    `yaml:"limit"`     // per-request page size
	MaxItems int    `yaml:"max_items"` // cap on items returned per sweep

	// MaxRequestsPerWindow caps sweep request volume per minute against
	// one upstream; 0 keeps the per-type default.
	MaxRequestsPerWindow int `yaml:"max_requests_per_window"`

	// Retry/backoff overrides. MaxRetries is a pointer so an explicit 0
	// (single attempt) is distinguishable from "use the default".
	MaxRetries        *int          `yaml:"max_retries"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`

	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`

	// AuthToken is filled by env expansion (e.g. "${MASTODON_TOKEN}");
	// the core never contacts a secret store itself.
	AuthToken string `yaml:"auth_token"`
}

// RetryConfig builds the retry engine settings for this source. The
// rate-limit buffer comes from the source type's adaptive profile.
func (s SourceConfig) RetryConfig() collect.RetryConfig {
	cfg := collect.DefaultRetryConfig
	cfg.RateLimitBuffer = s.AdaptiveParams().RateLimitBuffer
	if s.MaxRetries != nil {
		cfg.MaxRetries = *s.MaxRetries
	}
	if s.BaseDelay > 0 {
		cfg.BaseDelay = s.BaseDelay
	}
	if s.MaxDelay > 0 {
		cfg.MaxDelay = s.MaxDelay
	}
	if s.BackoffMultiplier > 0 {
		cfg.BackoffMultiplier = s.BackoffMultiplier
	}
	return cfg
}

// AdaptiveParams builds the pacing parameters for this source, starting
// from the per-type defaults and applying overrides.
func (s SourceConfig) AdaptiveParams() collect.AdaptiveParams {
	p := collect.ParamsFor(s.Type)
	if s.BaseDelay > 0 {
		p.BaseDelay = s.BaseDelay
	}
	if s.MaxDelay > 0 {
		p.MaxDelay = s.MaxDelay
	}
	if s.BackoffMultiplier > 0 {
		p.BackoffMultiplier = s.BackoffMultiplier
	}
	if s.MaxRequestsPerWindow > 0 {
		p.MaxRequestsPerWindow = s.MaxRequestsPerWindow
	}
	return p
}
