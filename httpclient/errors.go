package httpclient

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError.Unwrap.
var (
	// ErrBadRequest indicates the receiver rejected the payload.
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates invalid or missing credentials.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrForbidden indicates the credentials lack permission.
	ErrForbidden = errors.New("permission denied")

	// ErrNotFound indicates the endpoint does not exist.
	ErrNotFound = errors.New("endpoint not found")

	// ErrRateLimited indicates the receiver is throttling requests.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServerError indicates a server-side failure.
	ErrServerError = errors.New("server error")
)

// APIError is returned for any response with a status of 400 or above.
type APIError struct {
	// Service names the receiver, e.g. "slack" or "webhook".
	Service string

	// StatusCode is the HTTP status of the final attempt.
	StatusCode int

	// Message is taken from the response body when it carries one.
	Message string

	// RequestID is the receiver's X-Request-Id, if any.
	RequestID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s returned %d [%s]: %s", e.Service, e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
}

// Unwrap maps the status code onto a sentinel error.
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

// IsRetryable reports whether a failed delivery is worth retrying later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError)
}
