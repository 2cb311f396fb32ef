package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/supportflow/auth"
	"github.com/randalmurphal/supportflow/config"
	"github.com/randalmurphal/supportflow/workflow"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// Explain turns errors returned by the pipeline, config and auth packages
// into CLIErrors. Other errors, and errors that already are CLIErrors, are
// returned unchanged.
func Explain(err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var (
		validation  *workflow.ValidationError
		interrupted *workflow.InterruptedError
		stageErr    *workflow.StageError
	)
	switch {
	case errors.As(err, &validation):
		return &CLIError{
			Err:        err,
			Message:    "The ticket was rejected.",
			Details:    validation.Error(),
			Suggestion: "Provide a non-empty subject and description within the configured length limits.",
		}
	case errors.As(err, &interrupted):
		return &CLIError{
			Err:        err,
			Message:    fmt.Sprintf("Run %s was interrupted during %s.", interrupted.RunID, interrupted.Stage),
			Suggestion: fmt.Sprintf("Continue it with:\n  supportflow resume %s", interrupted.RunID),
		}
	case errors.Is(err, workflow.ErrRunNotFound):
		return &CLIError{
			Err:        err,
			Message:    "No checkpoint exists for that run.",
			Details:    err.Error(),
			Suggestion: "Runs are only resumable with a persistent store. Set checkpoint_driver to file or sqlite.",
		}
	case errors.As(err, &stageErr):
		return &CLIError{
			Err:        err,
			Message:    fmt.Sprintf("The pipeline failed in the %s stage.", stageErr.Stage),
			Details:    err.Error(),
			Suggestion: "This is a bug. Re-run with --log-level debug and report the output.",
		}
	case errors.Is(err, config.ErrInvalidValue):
		return &CLIError{
			Err:        err,
			Message:    "The configuration is invalid.",
			Details:    err.Error(),
			Suggestion: "Inspect resolved values with:\n  supportflow config list",
		}
	case errors.Is(err, auth.ErrSecretTooShort):
		return &CLIError{
			Err:        err,
			Message:    "The JWT secret is too short.",
			Suggestion: "Set jwt_secret to at least 32 bytes, for example:\n  export SUPPORTFLOW_JWT_SECRET=$(openssl rand -hex 32)",
		}
	}
	return err
}

// WrapConnectionError wraps connection-related errors with helpful guidance.
// service names what was being reached, such as "NATS".
func WrapConnectionError(err error, service, serverURL string) error {
	if err == nil {
		return nil
	}
	if !IsConnectionError(err) {
		return err
	}

	errStr := strings.ToLower(err.Error())
	cliErr := &CLIError{
		Err:     fmt.Errorf("%w: %w", ErrConnectionFailed, err),
		Message: fmt.Sprintf("Cannot connect to %s at %s", service, serverURL),
		Suggestion: "Check that:\n  - The server is running\n  - The URL is correct\n" +
			"  - Your network connection is working",
	}
	switch {
	case containsAny(errStr, tlsMarkers):
		cliErr.Message = fmt.Sprintf("TLS/certificate error connecting to %s at %s", service, serverURL)
		cliErr.Details = err.Error()
		cliErr.Suggestion = "Check that the server certificate is valid."
	case containsAny(errStr, timeoutMarkers):
		cliErr.Message = fmt.Sprintf("Connection to %s at %s timed out", service, serverURL)
		cliErr.Suggestion = "The server may be overloaded or unreachable.\nTry again in a moment."
	}
	return cliErr
}

// NewNotConfiguredError reports that key must be set before purpose works.
func NewNotConfiguredError(key, purpose string) error {
	return &CLIError{
		Err:     fmt.Errorf("%w: %s", ErrNotConfigured, key),
		Message: fmt.Sprintf("%s requires %s to be set.", purpose, key),
		Suggestion: fmt.Sprintf("Set it with:\n  supportflow config set %s <value>\nor export %s%s",
			key, config.EnvPrefix, strings.ToUpper(key)),
	}
}
