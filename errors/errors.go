package errors

import "errors"

// Common CLI errors with actionable guidance.
var (
	// ErrConnectionFailed indicates an external service is unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotConfigured indicates a command needs a setting that is empty.
	ErrNotConfigured = errors.New("not configured")
)
