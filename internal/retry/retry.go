// Package retry implements the exponential-backoff retry discipline shared by
// the embedding and upload stages: bounded attempts, doubling delay, and
// Retry-After hints honored in place of the computed backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Config configures exponential backoff retry behavior.
type Config struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // initial delay between attempts
	MaxDelay    time.Duration // cap on the computed delay
	Multiplier  float64       // backoff multiplier per attempt
}

// DefaultConfig returns sensible defaults for API retry.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// HTTPError is a failed HTTP exchange with enough context to classify it.
// A 429 carries the server's Retry-After hint when one was present.
type HTTPError struct {
	Status     int
	RetryAfter time.Duration
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Transient reports whether the failure is worth retrying: rate limits and
// server-side errors are, client errors are not.
func (e *HTTPError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Retryable reports whether err should be retried. Network-level errors
// (timeouts, connection refused) arrive as plain errors and are treated as
// transient; HTTP errors are classified by status.
func Retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Transient()
	}
	return err != nil
}

// Do executes fn with exponential backoff until it succeeds, the attempt
// budget is exhausted, the error is non-retryable, or ctx is cancelled.
// When a rate-limit error carries a Retry-After hint the hint replaces the
// computed backoff for that attempt.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := cfg.BaseDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !Retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := backoff
		var he *HTTPError
		if errors.As(err, &he) && he.RetryAfter > 0 {
			delay = he.RetryAfter
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
			backoff = time.Duration(float64(backoff) * cfg.Multiplier)
			if backoff > cfg.MaxDelay {
				backoff = cfg.MaxDelay
			}
		}
	}

	return zero, lastErr
}

// ParseRetryAfter reads a Retry-After header value in seconds. Returns zero
// when the header is absent or malformed.
func ParseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	var secs int
	if _, err := fmt.Sscanf(v, "%d", &secs); err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
