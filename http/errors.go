// Package http provides the shared HTTP client used to talk to the planning
// backend: JSON requests, retry with backoff, typed API errors, pagination.
package http

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced through APIError.Unwrap, so callers can test with
// errors.Is without caring about status codes.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates invalid or missing authentication.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrForbidden indicates the caller lacks permission.
	ErrForbidden = errors.New("permission denied")

	// ErrRateLimited indicates the backend rate limit was exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = errors.New("bad request")

	// ErrServerError indicates a backend-side failure.
	ErrServerError = errors.New("server error")
)

// APIError is an error response from the backend.
type APIError struct {
	// Service names the backend, for log lines that mix clients.
	Service string

	// StatusCode is the HTTP status returned.
	StatusCode int

	// Message is the error message parsed from the response body.
	Message string

	// Endpoint is the path that was called.
	Endpoint string

	// RequestID is the backend's request ID, when it sends one.
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s API error (%d) at %s [%s]: %s",
			e.Service, e.StatusCode, e.Endpoint, e.RequestID, e.Message)
	}
	return fmt.Sprintf("%s API error (%d) at %s: %s",
		e.Service, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap maps the status code onto the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	default:
		if e.StatusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// IsNotFound reports whether err is a 404-class error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited reports whether err is a 429-class error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether a request that produced err is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError)
}
