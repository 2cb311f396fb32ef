package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var errEmptyDraft = errors.New("generator returned an empty draft")

// Generate drafts a response to the ticket.
//
// Prerequisites: state.Category must be set
// Updates: state.Drafts (appended), state.CurrentDraft, state.Status
//
// If the latest review rejected the previous draft, its feedback is passed
// along as correction guidance. A failed or empty generation yields the
// apology draft so the run keeps moving.
func (n *Nodes) Generate(ctx context.Context, state State) (State, error) {
	var (
		draft  string
		action string
	)

	if n.deps.Generator == nil {
		n.fallback(state, StageGenerate, fallbackUnavailable, nil)
		draft = TemplateDraft(state.Ticket, state.Category)
		action = "No generator configured, drafted template response"
	} else {
		callCtx, cancel := n.callContext(ctx)
		out, err := n.deps.Generator.Generate(callCtx, GenerateRequest{
			Subject:     state.Ticket.Subject,
			Description: state.Ticket.Description,
			Category:    state.Category,
			Context:     slices.Clone(state.RetrievedContext),
			Feedback:    rejectionFeedback(state),
		})
		cancel()

		if err == nil && strings.TrimSpace(out) == "" {
			err = errEmptyDraft
		}
		if err != nil {
			n.fallback(state, StageGenerate, fallbackFailed, err)
			draft = ApologyDraft(state.Category)
			action = "Generation failed, drafted fallback apology"
		} else {
			draft = strings.TrimSpace(out)
			action = "Response generated successfully"
		}
	}

	state.Drafts = append(state.Drafts, draft)
	state.CurrentDraft = draft
	state.Status = StatusResponseGenerated
	state.LogTransition(StageGenerate, fmt.Sprintf("%s (attempt %d)", action, len(state.Drafts)))

	n.logger.Debug("draft generated", "runId", state.RunID, "attempt", len(state.Drafts), "length", len(draft))
	return state, nil
}

// rejectionFeedback returns the latest review's feedback if that review was
// a rejection.
func rejectionFeedback(state State) string {
	latest, ok := state.LatestReview()
	if !ok || latest.Status != VerdictRejected {
		return ""
	}
	return latest.Feedback
}
