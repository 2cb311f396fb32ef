package workflow

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Ticket
// =============================================================================

// Ticket is the user-submitted support request. It is copied by value into
// the workflow state and never modified after the run starts.
type Ticket struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// Text returns subject and description joined for keyword matching.
func (t Ticket) Text() string {
	return t.Subject + " " + t.Description
}

// =============================================================================
// Categories
// =============================================================================

// Category is the closed set of ticket classifications.
type Category string

// Supported categories.
const (
	CategoryBilling   Category = "Billing"
	CategoryTechnical Category = "Technical"
	CategorySecurity  Category = "Security"
	CategoryGeneral   Category = "General"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryBilling, CategoryTechnical, CategorySecurity, CategoryGeneral}

var titleCaser = cases.Title(language.English)

// ParseCategory maps free-form classifier output onto the closed category set.
// Matching is case-insensitive and ignores surrounding whitespace and
// punctuation. Anything unrecognised becomes CategoryGeneral.
func ParseCategory(raw string) Category {
	cleaned := strings.Trim(strings.TrimSpace(raw), ".:;,!\"'`*")
	if cleaned == "" {
		return CategoryGeneral
	}
	candidate := Category(titleCaser.String(strings.ToLower(cleaned)))
	if candidate.Valid() {
		return candidate
	}
	return CategoryGeneral
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBilling, CategoryTechnical, CategorySecurity, CategoryGeneral:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// =============================================================================
// Retrieved context and review feedback
// =============================================================================

// ContextDocument is a knowledge-base excerpt returned by a Retriever.
type ContextDocument struct {
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
	Category       string  `json:"category"`
}

// Verdict is a review decision.
type Verdict string

// Review verdicts.
const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// ReviewFeedback is one review stage result. Entries are append-only and
// Attempt equals the entry's 1-based position in State.ReviewFeedback.
type ReviewFeedback struct {
	Status    Verdict `json:"status"`
	Feedback  string  `json:"feedback"`
	Timestamp string  `json:"timestamp"`
	Attempt   int     `json:"attempt"`
}

// =============================================================================
// Status
// =============================================================================

// Status marks how far a run has progressed.
type Status string

// Status values, in pipeline order.
const (
	StatusInitialized       Status = "initialized"
	StatusClassified        Status = "classified"
	StatusContextRetrieved  Status = "context_retrieved"
	StatusResponseGenerated Status = "response_generated"
	StatusReviewed          Status = "reviewed"
	StatusContextRefined    Status = "context_refined"
	StatusResolved          Status = "resolved"
	StatusEscalated         Status = "escalated"
)

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusEscalated
}

// =============================================================================
// State
// =============================================================================

// State is the record threaded through every stage of one ticket run.
// It is owned by a single execution and never shared between goroutines.
type State struct {
	RunID  string `json:"run_id"`
	Ticket Ticket `json:"ticket"`

	Category         Category          `json:"category"`
	RetrievedContext []ContextDocument `json:"retrieved_context"`

	Drafts       []string `json:"drafts"`
	CurrentDraft string   `json:"current_draft,omitempty"`

	ReviewFeedback []ReviewFeedback `json:"review_feedback"`
	ReviewStatus   Verdict          `json:"review_status,omitempty"`
	LatestFeedback string           `json:"latest_feedback,omitempty"`

	FinalOutput string `json:"final_output"`
	Retries     int    `json:"retries"`
	Status      Status `json:"status"`
	Escalated   bool   `json:"escalated"`

	ProcessingStartTime time.Time               `json:"processing_start_time"`
	ProcessingEndTime   time.Time               `json:"processing_end_time,omitempty"`
	StageDurations      map[Stage]time.Duration `json:"stage_durations,omitempty"`
	NodeExecutionLog    []string                `json:"node_execution_log"`
}

// NewState creates the initial state for a ticket run.
func NewState(runID string, ticket Ticket) State {
	return State{
		RunID:               runID,
		Ticket:              ticket,
		RetrievedContext:    []ContextDocument{},
		Drafts:              []string{},
		ReviewFeedback:      []ReviewFeedback{},
		Status:              StatusInitialized,
		ProcessingStartTime: time.Now(),
		StageDurations:      make(map[Stage]time.Duration),
		NodeExecutionLog:    []string{},
	}
}

// LogTransition appends an audit entry for a stage invocation.
func (s *State) LogTransition(stage Stage, action string) {
	entry := fmt.Sprintf("%s - %s: %s", time.Now().Format(time.RFC3339Nano), stage, action)
	s.NodeExecutionLog = append(s.NodeExecutionLog, entry)
}

// LatestReview returns the most recent review entry, if any.
func (s State) LatestReview() (ReviewFeedback, bool) {
	if len(s.ReviewFeedback) == 0 {
		return ReviewFeedback{}, false
	}
	return s.ReviewFeedback[len(s.ReviewFeedback)-1], true
}

// Clone returns a deep copy so a stage can work on state that the driver may
// discard if the stage is interrupted.
func (s State) Clone() State {
	c := s
	c.RetrievedContext = slices.Clone(s.RetrievedContext)
	c.Drafts = slices.Clone(s.Drafts)
	c.ReviewFeedback = slices.Clone(s.ReviewFeedback)
	c.NodeExecutionLog = slices.Clone(s.NodeExecutionLog)
	c.StageDurations = maps.Clone(s.StageDurations)
	return c
}

// =============================================================================
// Invariants
// =============================================================================

// CheckInvariants verifies the structural rules every state must satisfy.
// maxRetries is the configured retry bound.
func (s State) CheckInvariants(maxRetries int) error {
	if s.Retries < 0 || s.Retries > maxRetries {
		return fmt.Errorf("retries %d outside [0, %d]", s.Retries, maxRetries)
	}
	for i, fb := range s.ReviewFeedback {
		if fb.Attempt != i+1 {
			return fmt.Errorf("review feedback %d has attempt %d", i, fb.Attempt)
		}
	}
	if len(s.Drafts) > 0 && s.CurrentDraft != s.Drafts[len(s.Drafts)-1] {
		return fmt.Errorf("current draft does not match last draft")
	}
	switch s.Status {
	case StatusResponseGenerated, StatusReviewed, StatusResolved, StatusEscalated:
		if len(s.Drafts) != s.Retries+1 {
			return fmt.Errorf("%d drafts for %d retries", len(s.Drafts), s.Retries)
		}
	}
	if s.Status.Terminal() != (s.FinalOutput != "") {
		return fmt.Errorf("final output presence does not match status %s", s.Status)
	}
	if s.Escalated && s.Status != StatusEscalated {
		return fmt.Errorf("escalated flag set with status %s", s.Status)
	}
	return nil
}
