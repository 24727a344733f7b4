package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tdngyn/skimmer/internal/collect"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
pipeline:
  interval: 15m
  seen_ttl: 24h
sources:
  - name: reddit-dev
    type: reddit
    subreddits: [golang, programming]
    listing: new
    limit: 50
    max_retries: 5
    base_delay: 3s
    max_requests_per_window: 40
  - type: mastodon
    instances: [mastodon.social]
    hashtags: [golang]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Pipeline.Interval != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", cfg.Pipeline.Interval)
	}
	if cfg.Pipeline.SeenTTL != 24*time.Hour {
		t.Errorf("seen_ttl = %v, want 24h", cfg.Pipeline.SeenTTL)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(cfg.Sources))
	}

	reddit := cfg.Sources[0]
	if reddit.Listing != "new" || reddit.Limit != 50 {
		t.Errorf("overrides not applied: %+v", reddit)
	}
	if reddit.MaxRetries == nil || *reddit.MaxRetries != 5 {
		t.Errorf("max_retries = %v, want 5", reddit.MaxRetries)
	}
	if reddit.MaxRequestsPerWindow != 40 {
		t.Errorf("max_requests_per_window = %d, want 40", reddit.MaxRequestsPerWindow)
	}

	// Unset fields pick up defaults; a nameless entry is named after its
	// type.
	mastodon := cfg.Sources[1]
	if mastodon.Name != "mastodon" {
		t.Errorf("name = %q, want type fallback", mastodon.Name)
	}
	if mastodon.Limit != 25 || mastodon.MaxItems != 100 {
		t.Errorf("limit/max_items defaults missing: %+v", mastodon)
	}
	if mastodon.Timeout != 30*time.Second {
		t.Errorf("timeout default = %v", mastodon.Timeout)
	}
	if mastodon.UserAgent == "" {
		t.Error("user agent default missing")
	}
	if mastodon.MaxRetries != nil {
		t.Errorf("max_retries should stay unset, got %v", *mastodon.MaxRetries)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "sources: []\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port default = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Pipeline.SeenTTL != 72*time.Hour {
		t.Errorf("seen_ttl default = %v, want 72h", cfg.Pipeline.SeenTTL)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MASTODON_TOKEN", "s3cret")
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load(writeConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
sources:
  - type: mastodon
    instances: [mastodon.social]
    hashtags: [golang]
    auth_token: ${TEST_MASTODON_TOKEN}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sources[0].AuthToken != "s3cret" {
		t.Errorf("auth_token = %q, env not expanded", cfg.Sources[0].AuthToken)
	}
	if cfg.Redis.URL != "redis://localhost:6379/1" {
		t.Errorf("redis url = %q, env not expanded", cfg.Redis.URL)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "sources: [not: {valid")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestSourceRetryConfig(t *testing.T) {
	var zero SourceConfig
	want := collect.DefaultRetryConfig
	want.RateLimitBuffer = 2 * time.Second // web profile, the untyped fallback
	if got := zero.RetryConfig(); got != want {
		t.Errorf("zero value should yield defaults, got %+v", got)
	}

	if got := (SourceConfig{Type: "mastodon"}).RetryConfig().RateLimitBuffer; got != 15*time.Second {
		t.Errorf("mastodon rate-limit buffer = %v, want the type profile's 15s", got)
	}

	retries := 0
	s := SourceConfig{
		MaxRetries:        &retries,
		BaseDelay:         250 * time.Millisecond,
		BackoffMultiplier: 3,
	}
	got := s.RetryConfig()
	if got.MaxRetries != 0 {
		t.Errorf("explicit zero retries lost: %d", got.MaxRetries)
	}
	if got.BaseDelay != 250*time.Millisecond || got.BackoffMultiplier != 3 {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.MaxDelay != 60*time.Second {
		t.Errorf("unset max_delay should keep the default, got %v", got.MaxDelay)
	}
}

func TestSourceAdaptiveParams(t *testing.T) {
	s := SourceConfig{Type: "reddit"}
	p := s.AdaptiveParams()
	if p.BaseDelay != 2*time.Second {
		t.Errorf("reddit base delay = %v, want per-type default", p.BaseDelay)
	}

	s.BaseDelay = 10 * time.Second
	if got := s.AdaptiveParams().BaseDelay; got != 10*time.Second {
		t.Errorf("override lost: %v", got)
	}

	if got := s.AdaptiveParams().MaxRequestsPerWindow; got != 60 {
		t.Errorf("window cap = %d, want reddit default 60", got)
	}
	s.MaxRequestsPerWindow = 10
	if got := s.AdaptiveParams().MaxRequestsPerWindow; got != 10 {
		t.Errorf("window cap override lost: %d", got)
	}
}
