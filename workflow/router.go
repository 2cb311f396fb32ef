package workflow

import "fmt"

// DefaultMaxRetries bounds refinement cycles: one initial draft plus two
// retries gives three generation attempts before forced escalation.
const DefaultMaxRetries = 2

// Decision is the router's choice of the next stage. IncrementRetries is set
// only when entering a refinement cycle; the driver applies it before the
// next stage runs so the retry bound can be checked in one place.
type Decision struct {
	Next             Stage
	IncrementRetries bool
}

// Route picks the successor of the review stage. It reads state but never
// modifies it.
//
//   - approved                          -> finalize
//   - rejected, retries < maxRetries    -> refine (retries + 1)
//   - rejected, retries >= maxRetries   -> escalate
//
// Any review status other than approved is treated as a rejection.
func Route(s State, maxRetries int) Decision {
	if s.ReviewStatus == VerdictApproved {
		return Decision{Next: StageFinalize}
	}
	if s.Retries < maxRetries {
		return Decision{Next: StageRefine, IncrementRetries: true}
	}
	return Decision{Next: StageEscalate}
}

// NextStage returns the decision for leaving the given stage. Every edge is
// unconditional except the one out of StageReview.
func NextStage(current Stage, s State, maxRetries int) (Decision, error) {
	if current == StageReview {
		return Route(s, maxRetries), nil
	}
	next, ok := staticEdges[current]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownStage, current)
	}
	return Decision{Next: next}, nil
}

// Apply performs the decision's side effect on s. Taking a refinement
// transition when the retry budget is spent is a routing defect.
func (d Decision) Apply(s *State, maxRetries int) error {
	if !d.IncrementRetries {
		return nil
	}
	if s.Retries >= maxRetries {
		return fmt.Errorf("%w: retries=%d max=%d", ErrRetryBudgetExceeded, s.Retries, maxRetries)
	}
	s.Retries++
	return nil
}
