package collect

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"retryable collector error", NewCollectorError("reddit", "server error (503)", nil), true},
		{"permanent collector error", NewPermanentError("reddit", "authentication failed", nil), false},
		{"rate limit always retryable", NewRateLimitError("mastodon", 5*time.Second), true},
		{"unmapped error defaults retryable", errors.New("connection reset by peer"), true},
		{"wrapped permanent error", fmt.Errorf("sweep: %w", NewPermanentError("web", "bad feed", nil)), false},
		{"wrapped rate limit", fmt.Errorf("sweep: %w", NewRateLimitError("web", time.Second)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.expect {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}

func TestNewRateLimitErrorFallback(t *testing.T) {
	if got := NewRateLimitError("reddit", 0).RetryAfter; got != DefaultRetryAfter {
		t.Errorf("RetryAfter = %v, want %v", got, DefaultRetryAfter)
	}
	if got := NewRateLimitError("reddit", -time.Second).RetryAfter; got != DefaultRetryAfter {
		t.Errorf("RetryAfter = %v, want %v", got, DefaultRetryAfter)
	}
	if got := NewRateLimitError("reddit", 5*time.Second).RetryAfter; got != 5*time.Second {
		t.Errorf("RetryAfter = %v, want 5s", got)
	}
}

func TestWrapAttemptError(t *testing.T) {
	rl := NewRateLimitError("m", time.Second)
	if got := wrapAttemptError("m", rl); got != rl {
		t.Errorf("rate limit error should pass through unchanged")
	}

	ce := NewPermanentError("m", "auth", nil)
	if got := wrapAttemptError("m", ce); got != ce {
		t.Errorf("collector error should pass through unchanged")
	}

	plain := errors.New("tls handshake failed")
	wrapped := wrapAttemptError("m", plain)
	var out *CollectorError
	if !errors.As(wrapped, &out) {
		t.Fatalf("expected *CollectorError, got %T", wrapped)
	}
	if !out.Retryable {
		t.Errorf("unmapped errors must wrap retryable")
	}
	if !errors.Is(wrapped, plain) {
		t.Errorf("wrapped error must preserve the cause")
	}
}

func TestCollectorErrorMessage(t *testing.T) {
	err := NewCollectorError("reddit", "request failed", errors.New("dial tcp: timeout"))
	want := "reddit: request failed: dial tcp: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
