package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const maxResponseBytes = 10 << 20 // 10 MiB cap on any upstream body

// HTTPClient issues the outbound GETs for one collector instance and
// classifies every outcome into the error taxonomy. The underlying
// http.Client is exclusively owned by its collector and released via
// Close.
type HTTPClient struct {
	source    string
	userAgent string
	authToken string
	client    *http.Client
}

// NewHTTPClient creates the client a collector owns for its lifetime.
func NewHTTPClient(source, userAgent string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		source:    source,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SetAuthToken attaches a bearer token to subsequent requests. Tokens are
// resolved by an external collaborator; this client only carries them.
func (h *HTTPClient) SetAuthToken(token string) {
	h.authToken = token
}

// Get issues one GET and returns the raw body on a <400 status.
//
// Outcome classification:
//
//	transport failure -> CollectorError(retryable)
//	429               -> RateLimitError(Retry-After header, default 60s)
//	401               -> CollectorError(non-retryable, authentication)
//	>=500             -> CollectorError(retryable)
//	other >=400       -> CollectorError(non-retryable)
func (h *HTTPClient) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	u := rawURL
	if len(query) > 0 {
		u = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, NewPermanentError(h.source, "build request", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewCollectorError(h.source, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, NewRateLimitError(h.source, parseRetryAfter(resp.Header.Get("Retry-After")))

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewPermanentError(h.source, "authentication failed", nil)

	case resp.StatusCode >= 500:
		return nil, NewCollectorError(h.source,
			fmt.Sprintf("server error (%d)", resp.StatusCode), nil)

	case resp.StatusCode >= 400:
		return nil, NewPermanentError(h.source,
			fmt.Sprintf("request rejected (%d)", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewCollectorError(h.source, "read response", err)
	}
	return body, nil
}

// GetJSON issues one GET and decodes the body into v. A body that does
// not decode is a malformed envelope and therefore non-retryable.
func (h *HTTPClient) GetJSON(ctx context.Context, rawURL string, query url.Values, v any) error {
	body, err := h.Get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return NewPermanentError(h.source, "malformed response", err)
	}
	return nil
}

// Close releases idle connections.
func (h *HTTPClient) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter reads an integer-seconds Retry-After value; anything
// else falls back to the taxonomy default.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return DefaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
