package source

import (
	"errors"
	"fmt"
	"time"
)

// APIError is the generic failure returned by the source API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("source api: %s (code %s, status %d, request %s)", e.Message, e.Code, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("source api: %s (code %s, status %d)", e.Message, e.Code, e.StatusCode)
}

// RateLimitError is returned on HTTP 429. RetryAfter carries the server's
// requested backoff.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	RequestID  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("source api: %s (rate limited, retry after %s)", e.Message, e.RetryAfter)
}

// AuthError is returned on HTTP 401. It is permanent: retrying with the
// same credentials cannot succeed.
type AuthError struct {
	Message   string
	RequestID string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("source api: %s (authentication failed)", e.Message)
}

// NotFoundError is returned on HTTP 404.
type NotFoundError struct {
	Resource  string
	RequestID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source api: %s not found", e.Resource)
}

// Transient reports whether an error is worth retrying: rate limits,
// timeouts and server-side failures. Authentication and not-found errors
// are permanent.
func Transient(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}

	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode >= 500 || ae.StatusCode == 408
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}

	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return false
	}

	// Transport-level failures (connection reset, timeout) are transient.
	return true
}
