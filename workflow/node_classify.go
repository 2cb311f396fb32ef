package workflow

import (
	"context"
	"fmt"
)

// Classify assigns the ticket category.
//
// Prerequisites: state.Ticket must be set
// Updates: state.Category, state.Status
//
// The classifier's answer is coerced onto the closed category set. If no
// classifier is configured, or the call fails, the keyword heuristic decides.
func (n *Nodes) Classify(ctx context.Context, state State) (State, error) {
	var (
		category Category
		action   string
	)

	if n.deps.Classifier == nil {
		n.fallback(state, StageClassify, fallbackUnavailable, nil)
		category = ClassifyByKeywords(state.Ticket.Subject, state.Ticket.Description)
		action = fmt.Sprintf("Classified as %s by keyword heuristic", category)
	} else {
		callCtx, cancel := n.callContext(ctx)
		raw, err := n.deps.Classifier.Classify(callCtx, state.Ticket.Subject, state.Ticket.Description)
		cancel()

		if err != nil {
			n.fallback(state, StageClassify, fallbackFailed, err)
			category = ClassifyByKeywords(state.Ticket.Subject, state.Ticket.Description)
			action = fmt.Sprintf("Classifier failed, classified as %s by keyword heuristic", category)
		} else {
			category = ParseCategory(raw)
			action = fmt.Sprintf("Classified as %s", category)
		}
	}

	state.Category = category
	state.Status = StatusClassified
	state.LogTransition(StageClassify, action)

	n.logger.Info("ticket classified", "runId", state.RunID, "category", category)
	return state, nil
}
