// Package sources contains the concrete per-platform collectors and the
// factory that builds them from declarative configuration.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/core/config"
	"github.com/tdngyn/skimmer/internal/core/domain"
)

const redditBaseURL = "https://www.reddit.com"

// Reddit collects posts from public subreddit listings.
type Reddit struct {
	name       string
	baseURL    string
	subreddits []string
	listing    string
	limit      int
	maxItems   int
	pause      time.Duration
	http       *collect.HTTPClient
	log        *slog.Logger
}

// NewReddit builds a Reddit collector from its source entry.
func NewReddit(cfg config.SourceConfig, log *slog.Logger) *Reddit {
	h := collect.NewHTTPClient(cfg.Name, cfg.UserAgent, cfg.Timeout)
	if cfg.AuthToken != "" {
		h.SetAuthToken(cfg.AuthToken)
	}
	return &Reddit{
		name:       cfg.Name,
		baseURL:    redditBaseURL,
		subreddits: cfg.Subreddits,
		listing:    cfg.Listing,
		limit:      cfg.Limit,
		maxItems:   cfg.MaxItems,
		pause:      cfg.AdaptiveParams().SweepPause(),
		http:       h,
		log:        log.With("collector", cfg.Name),
	}
}

// Listing envelope as served by /r/<sub>/<listing>.json.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// SourceName returns the collector's identifier.
func (r *Reddit) SourceName() string {
	return r.name
}

// CollectBatch sweeps all configured subreddits. A failed subreddit is
// logged and skipped; the sweep only errors when no target succeeded.
func (r *Reddit) CollectBatch(ctx context.Context, maxItems int) ([]domain.Item, error) {
	if maxItems <= 0 {
		maxItems = r.maxItems
	}
	if len(r.subreddits) == 0 {
		return nil, collect.NewPermanentError(r.name, "no subreddits configured", nil)
	}

	var items []domain.Item
	var lastErr error
	succeeded := 0

	for i, sub := range r.subreddits {
		if i > 0 {
			if err := collect.Sleep(ctx, r.pause); err != nil {
				return nil, err
			}
		}

		batch, err := r.collectSubreddit(ctx, sub, r.limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			r.log.Warn("subreddit sweep failed", "subreddit", sub, "error", err)
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

// collectSubreddit fetches one listing page. The page size is a
// parameter so callers never mutate shared collector state.
func (r *Reddit) collectSubreddit(ctx context.Context, sub string, limit int) ([]domain.Item, error) {
	endpoint := fmt.Sprintf("%s/r/%s/%s.json", r.baseURL, url.PathEscape(sub), r.listing)
	query := url.Values{
		"limit":    {strconv.Itoa(limit)},
		"raw_json": {"1"},
	}

	var listing redditListing
	if err := r.http.GetJSON(ctx, endpoint, query, &listing); err != nil {
		return nil, err
	}
	if listing.Data.Children == nil {
		return nil, collect.NewPermanentError(r.name,
			fmt.Sprintf("unexpected listing shape for r/%s", sub), nil)
	}

	items := make([]domain.Item, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		items = append(items, standardizeRedditPost(r.name, child.Data))
	}
	return items, nil
}

func standardizeRedditPost(source string, p redditPost) domain.Item {
	link := p.URL
	if p.Permalink != "" {
		// permalinks point at reddit.com regardless of which endpoint
		// served the listing
		link = redditBaseURL + p.Permalink
	}
	return domain.Item{
		ID:        "reddit:" + p.ID,
		Title:     p.Title,
		Content:   p.Selftext,
		URL:       link,
		Author:    p.Author,
		CreatedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
		Source:    source,
		Metadata: map[string]string{
			"subreddit":    p.Subreddit,
			"score":        strconv.Itoa(p.Score),
			"num_comments": strconv.Itoa(p.NumComments),
		},
	}
}

// HealthCheck issues one minimal live request against the first target.
func (r *Reddit) HealthCheck(ctx context.Context) (bool, string) {
	if len(r.subreddits) == 0 {
		return false, fmt.Sprintf("%s health check failed: no subreddits configured", r.name)
	}
	if _, err := r.collectSubreddit(ctx, r.subreddits[0], 1); err != nil {
		return false, fmt.Sprintf("%s health check failed: %v", r.name, err)
	}
	return true, fmt.Sprintf("%s accessible", r.name)
}

// Close releases the owned HTTP client.
func (r *Reddit) Close() error {
	return r.http.Close()
}
