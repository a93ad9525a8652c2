package httpclient

import (
	"fmt"
	"time"
)

// StatusError represents a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Permanent reports whether retrying the same URL is pointless.
// Client errors other than 429 will not heal on their own.
func (e *StatusError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429
}

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout fetching %s: %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnError represents a transport-level failure (DNS, refused
// connection, reset).
type ConnError struct {
	URL string
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connection error fetching %s: %v", e.URL, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// RateLimitError is returned when the server kept answering 429 past
// the client's patience.
type RateLimitError struct {
	URL        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited fetching %s, retry after %v", e.URL, e.RetryAfter)
}
