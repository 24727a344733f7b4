package collect

import (
	"errors"
	"fmt"
	"time"
)

// DefaultRetryAfter is used when an upstream rate-limit signal carries no
// usable wait hint.
const DefaultRetryAfter = 60 * time.Second

// CollectorError is the base failure signal leaving a collection attempt.
// Retryable distinguishes transient conditions (network resets, 5xx) from
// permanent ones (bad credentials, malformed config).
type CollectorError struct {
	Source    string
	Message   string
	Retryable bool
	Err       error
}

func (e *CollectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func (e *CollectorError) Unwrap() error {
	return e.Err
}

// NewCollectorError builds a retryable collector error wrapping err.
func NewCollectorError(source, message string, err error) *CollectorError {
	return &CollectorError{Source: source, Message: message, Retryable: true, Err: err}
}

// NewPermanentError builds a non-retryable collector error wrapping err.
func NewPermanentError(source, message string, err error) *CollectorError {
	return &CollectorError{Source: source, Message: message, Retryable: false, Err: err}
}

// RateLimitError reports upstream backpressure. Always retryable; carries
// the wait the server asked for before the next request.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Source, e.RetryAfter)
}

// NewRateLimitError builds a rate-limit error. A non-positive retryAfter
// falls back to DefaultRetryAfter.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

// Retryable reports whether the retry loop may spend budget on err.
// Rate limits are always retryable; unmapped errors default to retryable
// so a single odd failure never kills a source permanently.
func Retryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var ce *CollectorError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return true
}

// wrapAttemptError guarantees that only taxonomy errors cross the
// collector boundary: anything unmapped becomes a retryable
// CollectorError.
func wrapAttemptError(source string, err error) error {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return err
	}
	var ce *CollectorError
	if errors.As(err, &ce) {
		return err
	}
	return NewCollectorError(source, "collection attempt failed", err)
}
