package workflow

import (
	"errors"
	"fmt"
)

// Workflow errors
var (
	// ErrInvalidTicket is returned by Run when the ticket fails validation.
	// No state or checkpoint is created.
	ErrInvalidTicket = errors.New("invalid ticket")

	// ErrRunNotFound indicates no checkpoint exists for a run ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunInProgress indicates the run is already being driven by another
	// Run or Resume call on the same Orchestrator.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrInterrupted indicates the run was cancelled mid-stage. The run can be
	// resumed; the interrupted stage is executed again.
	ErrInterrupted = errors.New("run interrupted")

	// ErrRetryBudgetExceeded indicates the router tried to enter refinement
	// with no retries left.
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")

	// ErrInvariant indicates a stage produced a state that breaks a
	// structural invariant.
	ErrInvariant = errors.New("state invariant violated")

	// ErrUnknownStage indicates a checkpoint or edge names no known stage.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrStepLimit indicates the driver executed more stages than any valid
	// run can need.
	ErrStepLimit = errors.New("step limit reached")
)

// ValidationError describes why a ticket was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidTicket.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidTicket
}

// StageError wraps an internal failure with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError carries a recovered panic from a stage handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// InterruptedError reports where a cancelled run stopped. The checkpoint for
// RunID points at Stage, which runs again on Resume.
type InterruptedError struct {
	RunID string
	Stage Stage
	Err   error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("run %s interrupted at %s: %v", e.RunID, e.Stage, e.Err)
}

// Is matches ErrInterrupted.
func (e *InterruptedError) Is(target error) bool {
	return target == ErrInterrupted
}

func (e *InterruptedError) Unwrap() error {
	return e.Err
}
