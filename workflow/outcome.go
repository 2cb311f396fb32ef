package workflow

import (
	"maps"
	"slices"
	"time"
)

// Timings reports where a run spent its time.
type Timings struct {
	Start  time.Time               `json:"start"`
	End    time.Time               `json:"end"`
	Total  time.Duration           `json:"total"`
	Stages map[Stage]time.Duration `json:"stages"`
}

// Outcome is the result of a completed run. Status is always resolved or
// escalated.
type Outcome struct {
	RunID            string            `json:"run_id"`
	Status           Status            `json:"status"`
	Category         Category          `json:"category"`
	FinalOutput      string            `json:"final_output"`
	Retries          int               `json:"retries"`
	Escalated        bool              `json:"escalated"`
	Drafts           []string          `json:"drafts"`
	ReviewFeedback   []ReviewFeedback  `json:"review_feedback"`
	RetrievedContext []ContextDocument `json:"retrieved_context"`
	ExecutionLog     []string          `json:"execution_log"`
	Timings          Timings           `json:"timings"`
}

func newOutcome(s State) *Outcome {
	end := s.ProcessingEndTime
	if end.IsZero() {
		end = time.Now()
	}
	stages := maps.Clone(s.StageDurations)
	if stages == nil {
		stages = map[Stage]time.Duration{}
	}
	return &Outcome{
		RunID:            s.RunID,
		Status:           s.Status,
		Category:         s.Category,
		FinalOutput:      s.FinalOutput,
		Retries:          s.Retries,
		Escalated:        s.Escalated,
		Drafts:           slices.Clone(s.Drafts),
		ReviewFeedback:   slices.Clone(s.ReviewFeedback),
		RetrievedContext: slices.Clone(s.RetrievedContext),
		ExecutionLog:     slices.Clone(s.NodeExecutionLog),
		Timings: Timings{
			Start:  s.ProcessingStartTime,
			End:    end,
			Total:  end.Sub(s.ProcessingStartTime),
			Stages: stages,
		},
	}
}
