package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/supportflow/checkpoint"
	"github.com/randalmurphal/supportflow/metrics"
	"github.com/randalmurphal/supportflow/notify"
)

const tracerName = "github.com/randalmurphal/supportflow/workflow"

// notifyTimeout bounds outcome notifications, which are sent even after the
// caller's context is cancelled.
const notifyTimeout = 10 * time.Second

// Orchestrator drives tickets through the pipeline. One Orchestrator may run
// many tickets concurrently, but each run is driven by one call at a time.
type Orchestrator struct {
	nodes    *Nodes
	cfg      Config
	store    checkpoint.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier notify.Notifier
	tracer   trace.Tracer
	newRunID func() string

	// active holds the IDs of runs currently being driven.
	active sync.Map
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithNotifier sets the notifier told about every run outcome.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithTracer sets the tracer used for per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithRunIDGenerator replaces the run ID source. IDs must never repeat.
func WithRunIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// New creates an Orchestrator. Zero Config fields take their defaults.
func New(deps Dependencies, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if deps.Store == nil {
		deps.Store = checkpoint.NewMemoryStore()
	}
	o.store = deps.Store
	o.nodes = NewNodes(deps, o.cfg, o.logger, o.metrics)
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// =============================================================================
// Entry points
// =============================================================================

// Run processes a ticket to a terminal outcome under a fresh run ID.
//
// Errors are limited to validation (ErrInvalidTicket, nothing is stored),
// cancellation (ErrInterrupted, the run can be resumed) and internal defects
// (*StageError).
func (o *Orchestrator) Run(ctx context.Context, ticket Ticket) (*Outcome, error) {
	if err := ValidateTicket(ticket, o.cfg.Limits); err != nil {
		return nil, err
	}

	state := NewState(o.newRunID(), ticket)
	if !o.acquire(state.RunID) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, state.RunID)
	}
	defer o.release(state.RunID)

	o.logger.Info("run started", "runId", state.RunID)
	o.save(ctx, state, EntryStage)

	return o.drive(ctx, state, EntryStage)
}

// Resume continues a checkpointed run. The stage recorded in the checkpoint
// runs again from the state saved before it started. Resuming a finished run
// returns its outcome without executing anything. Resuming a run that is
// still being driven returns ErrRunInProgress.
func (o *Orchestrator) Resume(ctx context.Context, runID string) (*Outcome, error) {
	if !o.acquire(runID) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, runID)
	}
	defer o.release(runID)

	snap, err := o.Checkpoint(ctx, runID)
	if err != nil {
		return nil, err
	}
	if snap.Next == StageEnd {
		return newOutcome(snap.State), nil
	}

	o.logger.Info("run resumed", "runId", runID, "stage", snap.Next, "retries", snap.State.Retries)
	return o.drive(ctx, snap.State, snap.Next)
}

func (o *Orchestrator) acquire(runID string) bool {
	_, busy := o.active.LoadOrStore(runID, struct{}{})
	return !busy
}

func (o *Orchestrator) release(runID string) {
	o.active.Delete(runID)
}

// Snapshot is a decoded checkpoint.
type Snapshot struct {
	RunID     string    `json:"run_id"`
	Next      Stage     `json:"next_stage"`
	State     State     `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checkpoint returns the stored position of a run.
func (o *Orchestrator) Checkpoint(ctx context.Context, runID string) (*Snapshot, error) {
	cp, err := o.store.Load(ctx, runID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var state State
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", runID, err)
	}
	next := Stage(cp.Stage)
	if next != StageEnd && !next.Valid() {
		return nil, fmt.Errorf("%w: %q in checkpoint %s", ErrUnknownStage, cp.Stage, runID)
	}

	return &Snapshot{RunID: cp.RunID, Next: next, State: state, UpdatedAt: cp.UpdatedAt}, nil
}

// =============================================================================
// Driver
// =============================================================================

func (o *Orchestrator) drive(ctx context.Context, state State, stage Stage) (*Outcome, error) {
	maxRetries := o.cfg.MaxRetries

	for steps := 0; stage != StageEnd; steps++ {
		if steps >= o.cfg.MaxSteps {
			return nil, o.fail(ctx, state, &StageError{Stage: stage, Err: ErrStepLimit})
		}
		if err := ctx.Err(); err != nil {
			return nil, o.interrupt(ctx, state, stage, err)
		}

		next, err := o.execute(ctx, stage, state)
		if ctxErr := ctx.Err(); ctxErr != nil && (err != nil || !stage.Terminal()) {
			// Discard whatever the stage produced; it reruns on resume. A
			// terminal stage that completed has already had its side effects
			// and is kept.
			return nil, o.interrupt(ctx, state, stage, ctxErr)
		}
		if err != nil {
			return nil, o.fail(ctx, state, err)
		}
		if err := next.CheckInvariants(maxRetries); err != nil {
			return nil, o.fail(ctx, state, &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", ErrInvariant, err)})
		}

		decision, err := NextStage(stage, next, maxRetries)
		if err != nil {
			return nil, o.fail(ctx, state, &StageError{Stage: stage, Err: err})
		}
		if err := decision.Apply(&next, maxRetries); err != nil {
			return nil, o.fail(ctx, state, &StageError{Stage: stage, Err: err})
		}
		if decision.IncrementRetries {
			o.logger.Info("draft rejected, refining",
				"runId", next.RunID,
				"retries", next.Retries,
				"feedback", next.LatestFeedback,
			)
		}

		state, stage = next, decision.Next
		o.save(ctx, state, stage)
	}

	outcome := newOutcome(state)
	o.metrics.RecordRun(string(outcome.Status), string(outcome.Category), outcome.Retries, outcome.Timings.Total)
	o.notifyOutcome(ctx, outcome)
	o.logger.Info("run completed",
		"runId", outcome.RunID,
		"status", outcome.Status,
		"category", outcome.Category,
		"retries", outcome.Retries,
		"duration", outcome.Timings.Total,
	)
	return outcome, nil
}

// execute runs one stage on a copy of state inside a span. Panics become
// *StageError.
func (o *Orchestrator) execute(ctx context.Context, stage Stage, state State) (result State, err error) {
	handler := o.nodes.Handler(stage)
	if handler == nil {
		return state, &StageError{Stage: stage, Err: ErrUnknownStage}
	}

	ctx, span := o.tracer.Start(ctx, "supportflow."+string(stage),
		trace.WithAttributes(
			attribute.String("supportflow.run_id", state.RunID),
			attribute.String("supportflow.stage", string(stage)),
			attribute.Int("supportflow.retries", state.Retries),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(attribute.String("supportflow.status", string(result.Status)))
	}()

	node := WithTiming(stage, handler, o.logger, o.metrics)
	result, err = node(ctx, state.Clone())
	if err != nil {
		err = &StageError{Stage: stage, Err: err}
	}
	return result, err
}

// save checkpoints state as about to run stage. Failures are logged and the
// run continues; only resumability is lost.
func (o *Orchestrator) save(ctx context.Context, state State, stage Stage) {
	data, err := json.Marshal(state)
	if err == nil {
		err = o.store.Save(context.WithoutCancel(ctx), checkpoint.Checkpoint{
			RunID: state.RunID,
			Stage: string(stage),
			State: data,
		})
	}
	if err != nil {
		o.metrics.RecordCheckpointFailure()
		o.logger.Warn("checkpoint save failed", "runId", state.RunID, "stage", stage, "error", err)
	}
}

func (o *Orchestrator) interrupt(ctx context.Context, state State, stage Stage, cause error) error {
	o.save(ctx, state, stage)
	o.metrics.RecordInterrupted(string(stage))
	o.logger.Warn("run interrupted", "runId", state.RunID, "stage", stage, "error", cause)
	o.notify(ctx, notify.Event{
		Type:     notify.EventRunInterrupted,
		RunID:    state.RunID,
		Category: string(state.Category),
		Stage:    string(stage),
		Message:  fmt.Sprintf("Run interrupted before completing %s", stage),
		Severity: notify.SeverityWarning,
	})
	return &InterruptedError{RunID: state.RunID, Stage: stage, Err: cause}
}

func (o *Orchestrator) fail(ctx context.Context, state State, err error) error {
	var stage Stage
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	o.logger.Error("run failed", "runId", state.RunID, "stage", stage, "error", err)
	o.notify(ctx, notify.Event{
		Type:     notify.EventRunFailed,
		RunID:    state.RunID,
		Category: string(state.Category),
		Stage:    string(stage),
		Message:  err.Error(),
		Severity: notify.SeverityError,
	})
	return err
}

func (o *Orchestrator) notifyOutcome(ctx context.Context, out *Outcome) {
	event := notify.Event{
		RunID:    out.RunID,
		Category: string(out.Category),
		Metadata: map[string]any{
			"retries": out.Retries,
			"drafts":  len(out.Drafts),
			"reviews": len(out.ReviewFeedback),
		},
	}
	if out.Escalated {
		event.Type = notify.EventTicketEscalated
		event.Severity = notify.SeverityWarning
		event.Message = fmt.Sprintf("Ticket escalated after %d retries", out.Retries)
	} else {
		event.Type = notify.EventTicketResolved
		event.Severity = notify.SeverityInfo
		event.Message = fmt.Sprintf("Ticket resolved after %d retries", out.Retries)
	}
	o.notify(ctx, event)
}

// notify delivers event without letting a notifier failure affect the run.
func (o *Orchestrator) notify(ctx context.Context, event notify.Event) {
	if o.notifier == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := o.notifier.Notify(nctx, event); err != nil {
		o.logger.Warn("notification failed", "runId", event.RunID, "type", event.Type, "error", err)
	}
}
