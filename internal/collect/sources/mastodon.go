package sources

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/core/config"
	"github.com/tdngyn/skimmer/internal/core/domain"
)

// Mastodon collects statuses from public hashtag timelines across one or
// more instances.
type Mastodon struct {
	name      string
	instances []string
	hashtags  []string
	limit     int
	maxItems  int
	pause     time.Duration
	http      *collect.HTTPClient
	log       *slog.Logger
}

// NewMastodon builds a Mastodon collector from its source entry.
func NewMastodon(cfg config.SourceConfig, log *slog.Logger) *Mastodon {
	h := collect.NewHTTPClient(cfg.Name, cfg.UserAgent, cfg.Timeout)
	if cfg.AuthToken != "" {
		h.SetAuthToken(cfg.AuthToken)
	}
	return &Mastodon{
		name:      cfg.Name,
		instances: cfg.Instances,
		hashtags:  cfg.Hashtags,
		limit:     cfg.Limit,
		maxItems:  cfg.MaxItems,
		pause:     cfg.AdaptiveParams().SweepPause(),
		http:      h,
		log:       log.With("collector", cfg.Name),
	}
}

type mastodonStatus struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Account   struct {
		Acct        string `json:"acct"`
		DisplayName string `json:"display_name"`
	} `json:"account"`
}

// SourceName returns the collector's identifier.
func (m *Mastodon) SourceName() string {
	return m.name
}

// CollectBatch sweeps every instance/hashtag pair, pausing between calls
// to the same instance. A failed pair is logged and skipped; the sweep
// only errors when no pair succeeded.
func (m *Mastodon) CollectBatch(ctx context.Context, maxItems int) ([]domain.Item, error) {
	if maxItems <= 0 {
		maxItems = m.maxItems
	}
	if len(m.instances) == 0 || len(m.hashtags) == 0 {
		return nil, collect.NewPermanentError(m.name, "no instances or hashtags configured", nil)
	}

	var items []domain.Item
	var lastErr error
	succeeded, calls := 0, 0

	for _, instance := range m.instances {
		for _, tag := range m.hashtags {
			if calls > 0 {
				if err := collect.Sleep(ctx, m.pause); err != nil {
					return nil, err
				}
			}
			calls++

			batch, err := m.collectTag(ctx, instance, tag, m.limit)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				lastErr = err
				m.log.Warn("hashtag sweep failed",
					"instance", instance, "hashtag", tag, "error", err)
				continue
			}
			succeeded++
			items = append(items, batch...)
		}
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

// instanceURL accepts both bare hosts ("mastodon.social") and full
// base URLs in the instance list.
func instanceURL(instance string) string {
	if strings.Contains(instance, "://") {
		return strings.TrimSuffix(instance, "/")
	}
	return "https://" + instance
}

// collectTag fetches one hashtag timeline page. The page size is a
// parameter so callers never mutate shared collector state.
func (m *Mastodon) collectTag(ctx context.Context, instance, tag string, limit int) ([]domain.Item, error) {
	endpoint := fmt.Sprintf("%s/api/v1/timelines/tag/%s", instanceURL(instance), url.PathEscape(tag))
	query := url.Values{"limit": {strconv.Itoa(limit)}}

	var statuses []mastodonStatus
	if err := m.http.GetJSON(ctx, endpoint, query, &statuses); err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(statuses))
	for _, st := range statuses {
		items = append(items, standardizeMastodonStatus(m.name, instance, tag, st))
	}
	return items, nil
}

func standardizeMastodonStatus(source, instance, tag string, st mastodonStatus) domain.Item {
	content := html.UnescapeString(stripTags(st.Content))
	createdAt, err := time.Parse(time.RFC3339, st.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	author := st.Account.DisplayName
	if author == "" {
		author = st.Account.Acct
	}

	return domain.Item{
		ID:        fmt.Sprintf("mastodon:%s:%s", instance, st.ID),
		Title:     firstLine(content, 120),
		Content:   content,
		URL:       st.URL,
		Author:    author,
		CreatedAt: createdAt.UTC(),
		Source:    source,
		Metadata: map[string]string{
			"instance": instance,
			"hashtag":  tag,
			"acct":     st.Account.Acct,
		},
	}
}

// HealthCheck issues one minimal live request against the first pair.
func (m *Mastodon) HealthCheck(ctx context.Context) (bool, string) {
	if len(m.instances) == 0 || len(m.hashtags) == 0 {
		return false, fmt.Sprintf("%s health check failed: no targets configured", m.name)
	}
	if _, err := m.collectTag(ctx, m.instances[0], m.hashtags[0], 1); err != nil {
		return false, fmt.Sprintf("%s health check failed: %v", m.name, err)
	}
	return true, fmt.Sprintf("%s accessible", m.name)
}

// Close releases the owned HTTP client.
func (m *Mastodon) Close() error {
	return m.http.Close()
}

var tagRe = regexp.MustCompile(`<[^>]*>`)
var spaceRe = regexp.MustCompile(`\s+`)

func stripTags(s string) string {
	s = strings.ReplaceAll(s, "</p>", "\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// firstLine truncates in runes so multibyte text never gets cut
// mid-sequence.
func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = spaceRe.ReplaceAllString(s, " ")
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return strings.TrimSpace(s)
}
