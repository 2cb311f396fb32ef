// Package errors turns supportflow failures into messages a CLI user can
// act on.
//
// Core types:
//   - CLIError: Wraps errors with message, suggestion, and details
//
// Explain recognises pipeline, config and auth errors:
//
//	if _, err := orch.Run(ctx, ticket); err != nil {
//	    return errors.Explain(err)
//	}
//
// ExitCode maps any error to the process exit status. Interrupted runs exit
// with ExitInterrupted so scripts can resume them.
package errors
