package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Review judges the current draft.
//
// Prerequisites: state.CurrentDraft should be set
// Updates: state.ReviewFeedback (appended), state.ReviewStatus,
// state.LatestFeedback, state.Status
//
// Only an explicit rejection counts as one. A missing reviewer, a failed call
// and an unrecognised verdict all approve the draft.
func (n *Nodes) Review(ctx context.Context, state State) (State, error) {
	var result ReviewResult

	switch {
	case n.deps.Reviewer == nil || state.CurrentDraft == "":
		n.fallback(state, StageReview, fallbackUnavailable, nil)
		result = ReviewResult{Status: VerdictApproved, Feedback: AutomatedReviewFeedback}
	default:
		callCtx, cancel := n.callContext(ctx)
		out, err := n.deps.Reviewer.Review(callCtx, ReviewRequest{
			Subject:     state.Ticket.Subject,
			Description: state.Ticket.Description,
			Draft:       state.CurrentDraft,
			Context:     slices.Clone(state.RetrievedContext),
		})
		cancel()

		if err != nil {
			n.fallback(state, StageReview, fallbackFailed, err)
			result = ReviewResult{Status: VerdictApproved, Feedback: ReviewUnavailableFeedback}
		} else {
			result = out
			if result.Status != VerdictRejected {
				result.Status = VerdictApproved
			}
		}
	}

	entry := ReviewFeedback{
		Status:    result.Status,
		Feedback:  result.Feedback,
		Timestamp: time.Now().Format(time.RFC3339),
		Attempt:   len(state.ReviewFeedback) + 1,
	}
	state.ReviewFeedback = append(state.ReviewFeedback, entry)
	state.ReviewStatus = entry.Status
	state.LatestFeedback = entry.Feedback
	state.Status = StatusReviewed
	state.LogTransition(StageReview, fmt.Sprintf("Review %d: %s", entry.Attempt, entry.Status))

	n.logger.Info("draft reviewed", "runId", state.RunID, "attempt", entry.Attempt, "verdict", entry.Status)
	return state, nil
}
