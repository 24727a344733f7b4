package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/core/config"
)

func webTestConfig(feeds []string) config.SourceConfig {
	return config.SourceConfig{
		Name:      "web-dev",
		Type:      "web",
		Feeds:     feeds,
		MaxItems:  100,
		Timeout:   5 * time.Second,
		BaseDelay: time.Millisecond,
		UserAgent: "skimmer-test/1.0",

		MaxRequestsPerWindow: 100000,
	}
}

const rssBody = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <item>
      <title>Hello &amp; welcome</title>
      <description>&lt;p&gt;First article&lt;/p&gt;</description>
      <link>https://example.com/hello</link>
      <guid>https://example.com/hello</guid>
      <pubDate>Mon, 02 Feb 2026 09:30:00 +0000</pubDate>
      <author>alice@example.com</author>
    </item>
    <item>
      <title>No guid here</title>
      <link>https://example.com/two</link>
    </item>
  </channel>
</rss>`

const atomBody = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Feed</title>
  <entry>
    <title>Atom entry</title>
    <summary>short summary</summary>
    <id>urn:example:1</id>
    <published>2026-02-03T12:00:00Z</published>
    <link rel="alternate" href="https://example.org/one"/>
    <author><name>bob</name></author>
  </entry>
</feed>`

func TestWebCollectRSS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	c := NewWeb(webTestConfig([]string{server.URL + "/feed.xml"}), discardLogger())
	defer c.Close()

	items, err := c.CollectBatch(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	first := items[0]
	if first.ID != "web:https://example.com/hello" {
		t.Errorf("id = %q", first.ID)
	}
	if first.Title != "Hello & welcome" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Content != "First article" {
		t.Errorf("content = %q", first.Content)
	}
	want := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", first.CreatedAt, want)
	}

	// Missing guid falls back to a content hash, still prefixed.
	second := items[1]
	if !strings.HasPrefix(second.ID, "web:") || len(second.ID) != len("web:")+16 {
		t.Errorf("hashed id = %q", second.ID)
	}
}

func TestWebCollectAtom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(atomBody))
	}))
	defer server.Close()

	c := NewWeb(webTestConfig([]string{server.URL}), discardLogger())
	defer c.Close()

	items, err := c.CollectBatch(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	it := items[0]
	if it.ID != "web:urn:example:1" {
		t.Errorf("id = %q", it.ID)
	}
	if it.Content != "short summary" {
		t.Errorf("content = %q", it.Content)
	}
	if it.URL != "https://example.org/one" {
		t.Errorf("url = %q", it.URL)
	}
	if it.Author != "bob" {
		t.Errorf("author = %q", it.Author)
	}
}

func TestWebUnparseableFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>not a feed</body></html>"))
	}))
	defer server.Close()

	c := NewWeb(webTestConfig([]string{server.URL}), discardLogger())
	defer c.Close()

	_, err := c.CollectBatch(context.Background(), 0)
	if err == nil {
		t.Fatal("expected error for unparseable feed")
	}
	var ce *collect.CollectorError
	if !errors.As(err, &ce) || ce.Retryable {
		t.Errorf("parse failure must be non-retryable, got %v", err)
	}
}

func TestWebPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Write([]byte(atomBody))
	}))
	defer server.Close()

	c := NewWeb(webTestConfig([]string{server.URL + "/down", server.URL + "/ok"}), discardLogger())
	defer c.Close()

	items, err := c.CollectBatch(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %d, want 1 from the surviving feed", len(items))
	}
}

func TestParseFeedTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 02 Feb 2026 09:30:00 +0000", time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)},
		{"2026-02-03T12:00:00Z", time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)},
		{"2026-02-03 12:00:00", time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := parseFeedTime(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseFeedTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := parseFeedTime("garbage"); time.Since(got) > time.Minute {
		t.Errorf("fallback should be near now, got %v", got)
	}
}
