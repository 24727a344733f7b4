package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/core/config"
	"github.com/tdngyn/skimmer/internal/core/domain"
)

// Web collects articles from generic web feeds (RSS 2.0 and Atom).
type Web struct {
	name     string
	feeds    []string
	maxItems int
	pause    time.Duration
	http     *collect.HTTPClient
	log      *slog.Logger
}

// NewWeb builds a web feed collector from its source entry.
func NewWeb(cfg config.SourceConfig, log *slog.Logger) *Web {
	return &Web{
		name:     cfg.Name,
		feeds:    cfg.Feeds,
		maxItems: cfg.MaxItems,
		pause:    cfg.AdaptiveParams().SweepPause(),
		http:     collect.NewHTTPClient(cfg.Name, cfg.UserAgent, cfg.Timeout),
		log:      log.With("collector", cfg.Name),
	}
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	ID        string     `xml:"id"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Links     []atomLink `xml:"link"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// SourceName returns the collector's identifier.
func (w *Web) SourceName() string {
	return w.name
}

// CollectBatch sweeps all configured feeds. A feed that fails or does
// not parse is logged and skipped; the sweep only errors when no feed
// succeeded.
func (w *Web) CollectBatch(ctx context.Context, maxItems int) ([]domain.Item, error) {
	if maxItems <= 0 {
		maxItems = w.maxItems
	}
	if len(w.feeds) == 0 {
		return nil, collect.NewPermanentError(w.name, "no feeds configured", nil)
	}

	var items []domain.Item
	var lastErr error
	succeeded := 0

	for i, feed := range w.feeds {
		if i > 0 {
			if err := collect.Sleep(ctx, w.pause); err != nil {
				return nil, err
			}
		}

		batch, err := w.collectFeed(ctx, feed)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			w.log.Warn("feed sweep failed", "feed", feed, "error", err)
			continue
		}
		succeeded++
		items = append(items, batch...)
	}

	if succeeded == 0 && lastErr != nil {
		return nil, lastErr
	}

	items = domain.DeduplicateByID(items)
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

func (w *Web) collectFeed(ctx context.Context, feedURL string) ([]domain.Item, error) {
	body, err := w.http.Get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}

	var rss rssFeed
	if err := xml.Unmarshal(body, &rss); err == nil && len(rss.Channel.Items) > 0 {
		items := make([]domain.Item, 0, len(rss.Channel.Items))
		for _, it := range rss.Channel.Items {
			items = append(items, standardizeRSSItem(w.name, feedURL, it))
		}
		return items, nil
	}

	var atom atomFeed
	if err := xml.Unmarshal(body, &atom); err == nil && len(atom.Entries) > 0 {
		items := make([]domain.Item, 0, len(atom.Entries))
		for _, e := range atom.Entries {
			items = append(items, standardizeAtomEntry(w.name, feedURL, e))
		}
		return items, nil
	}

	return nil, collect.NewPermanentError(w.name,
		fmt.Sprintf("unable to parse %s as RSS or Atom", feedURL), nil)
}

func standardizeRSSItem(source, feedURL string, it rssItem) domain.Item {
	id := strings.TrimSpace(it.GUID)
	if id == "" {
		id = hashID(it.Link + it.Title)
	}
	return domain.Item{
		ID:        "web:" + id,
		Title:     html.UnescapeString(strings.TrimSpace(it.Title)),
		Content:   html.UnescapeString(stripTags(it.Description)),
		URL:       strings.TrimSpace(it.Link),
		Author:    strings.TrimSpace(it.Author),
		CreatedAt: parseFeedTime(it.PubDate),
		Source:    source,
		Metadata:  map[string]string{"feed": feedURL},
	}
}

func standardizeAtomEntry(source, feedURL string, e atomEntry) domain.Item {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = hashID(entryLink(e) + e.Title)
	}
	content := e.Content
	if content == "" {
		content = e.Summary
	}
	published := e.Published
	if published == "" {
		published = e.Updated
	}
	return domain.Item{
		ID:        "web:" + id,
		Title:     html.UnescapeString(strings.TrimSpace(e.Title)),
		Content:   html.UnescapeString(stripTags(content)),
		URL:       entryLink(e),
		Author:    strings.TrimSpace(e.Author.Name),
		CreatedAt: parseFeedTime(published),
		Source:    source,
		Metadata:  map[string]string{"feed": feedURL},
	}
}

func entryLink(e atomEntry) string {
	for _, l := range e.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(e.Links) > 0 {
		return e.Links[0].Href
	}
	return ""
}

var feedTimeFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, f := range feedTimeFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// HealthCheck issues one live request against the first feed.
func (w *Web) HealthCheck(ctx context.Context) (bool, string) {
	if len(w.feeds) == 0 {
		return false, fmt.Sprintf("%s health check failed: no feeds configured", w.name)
	}
	if _, err := w.collectFeed(ctx, w.feeds[0]); err != nil {
		return false, fmt.Sprintf("%s health check failed: %v", w.name, err)
	}
	return true, fmt.Sprintf("%s accessible", w.name)
}

// Close releases the owned HTTP client.
func (w *Web) Close() error {
	return w.http.Close()
}
