package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/supportflow/escalation"
)

// Escalate hands the ticket to a human agent.
//
// Updates: state.FinalOutput, state.Escalated, state.Status,
// state.ProcessingEndTime
//
// The escalation record goes to the configured sink. A sink failure is
// logged and counted; the run still ends escalated.
func (n *Nodes) Escalate(ctx context.Context, state State) (State, error) {
	rec := escalationRecord(state)
	output := EscalationMessage
	action := "Ticket escalated to human agent"

	if err := n.recordEscalation(ctx, rec); err != nil {
		sink := escalation.Name(n.deps.Sink)
		n.metrics.RecordSinkFailure(sink)
		n.logger.Error("escalation record not written",
			"runId", state.RunID,
			"sink", sink,
			"error", err,
		)
		action = "Ticket escalated, escalation record not written"
		var pe *PanicError
		if errors.As(err, &pe) {
			output = ForwardedMessage
		}
	}

	state.FinalOutput = output
	state.Escalated = true
	state.Status = StatusEscalated
	state.ProcessingEndTime = time.Now()
	state.LogTransition(StageEscalate, action)

	n.logger.Info("ticket escalated", "runId", state.RunID, "category", state.Category, "retries", state.Retries)
	return state, nil
}

// recordEscalation writes rec, converting a sink panic into an error.
func (n *Nodes) recordEscalation(ctx context.Context, rec escalation.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	callCtx, cancel := n.callContext(ctx)
	defer cancel()
	return n.deps.Sink.Record(callCtx, rec)
}

func escalationRecord(state State) escalation.Record {
	rec := escalation.NewRecord(
		state.RunID,
		state.Ticket.Subject,
		state.Ticket.Description,
		state.Category.String(),
		state.Retries,
	)
	rec.Drafts = append(rec.Drafts, state.Drafts...)
	for _, fb := range state.ReviewFeedback {
		rec.Feedback = append(rec.Feedback, escalation.Feedback{
			Status:    string(fb.Status),
			Feedback:  fb.Feedback,
			Timestamp: fb.Timestamp,
			Attempt:   fb.Attempt,
		})
	}
	for _, doc := range state.RetrievedContext {
		rec.ContextSources = append(rec.ContextSources, doc.Source)
	}
	return rec
}

// Finalize publishes the approved draft.
//
// Prerequisites: state.CurrentDraft should be set
// Updates: state.FinalOutput, state.Status, state.ProcessingEndTime
func (n *Nodes) Finalize(_ context.Context, state State) (State, error) {
	action := "Workflow completed successfully"

	state.FinalOutput = state.CurrentDraft
	if state.FinalOutput == "" {
		state.FinalOutput = CompletedMessage
		action = "No draft available, completed with generic message"
	}
	state.Status = StatusResolved
	state.ProcessingEndTime = time.Now()
	state.LogTransition(StageFinalize, action)

	n.logger.Info("ticket resolved",
		"runId", state.RunID,
		"category", state.Category,
		"retries", state.Retries,
		"drafts", len(state.Drafts),
	)
	return state, nil
}
