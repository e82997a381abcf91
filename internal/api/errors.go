package api

import (
	"errors"
	"fmt"
)

// ErrMaintenance marks the upstream maintenance sentinel. It aborts the
// whole scrape cycle instead of being retried per item.
var ErrMaintenance = errors.New("clash royale API is in maintenance mode")

// StatusError is a non-200 response from the Clash Royale API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("clash royale API error: %d", e.StatusCode)
}

// NetworkError wraps transport-level failures (connect, timeout, DNS).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("clash royale API request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the error is worth retrying with backoff:
// rate limiting, upstream 5xx, or a transport failure.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsPermanent reports whether the error is terminal for this item only:
// forbidden token or unknown tag. No retry, siblings continue.
func IsPermanent(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 403 || se.StatusCode == 404
	}
	return false
}
