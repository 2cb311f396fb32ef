package errors

import (
	"errors"
	"strings"

	"github.com/randalmurphal/supportflow/auth"
	"github.com/randalmurphal/supportflow/config"
	"github.com/randalmurphal/supportflow/workflow"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2 // invalid input or configuration
	ExitInterrupted = 3 // run can be resumed
)

var (
	networkMarkers = []string{"connection refused", "no such host", "network is unreachable", "dial tcp", "no servers available"}
	tlsMarkers     = []string{"certificate", "tls", "x509"}
	timeoutMarkers = []string{"timeout", "deadline exceeded"}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsConnectionError checks if an error is connection-related.
// This includes TLS errors, timeouts, and network connectivity issues.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionFailed) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return containsAny(errStr, networkMarkers) ||
		containsAny(errStr, tlsMarkers) ||
		containsAny(errStr, timeoutMarkers)
}

// IsUsageError reports whether err was caused by user input or configuration
// rather than by the system.
func IsUsageError(err error) bool {
	return errors.Is(err, workflow.ErrInvalidTicket) ||
		errors.Is(err, workflow.ErrRunNotFound) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, auth.ErrUnknownScope) ||
		errors.Is(err, ErrNotConfigured)
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, workflow.ErrInterrupted):
		return ExitInterrupted
	case IsUsageError(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}
