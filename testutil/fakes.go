package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/randalmurphal/supportflow/escalation"
	"github.com/randalmurphal/supportflow/workflow"
)

// =============================================================================
// Classifier
// =============================================================================

// Classifier returns Label, or Err if set.
type Classifier struct {
	Label string
	Err   error

	mu    sync.Mutex
	calls int
}

// Classify implements workflow.Classifier.
func (c *Classifier) Classify(ctx context.Context, subject, description string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.Err != nil {
		return "", c.Err
	}
	return c.Label, nil
}

// Calls returns the number of Classify calls.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// =============================================================================
// Retriever
// =============================================================================

// Retriever returns Docs, or Err if set, and records every request.
type Retriever struct {
	Docs []workflow.ContextDocument
	Err  error

	mu       sync.Mutex
	requests []workflow.SearchRequest
}

// Search implements workflow.Retriever.
func (r *Retriever) Search(ctx context.Context, req workflow.SearchRequest) ([]workflow.ContextDocument, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	return append([]workflow.ContextDocument(nil), r.Docs...), nil
}

// Requests returns the recorded search requests.
func (r *Retriever) Requests() []workflow.SearchRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workflow.SearchRequest(nil), r.requests...)
}

// =============================================================================
// Generator
// =============================================================================

// Generator returns "Draft <n> for <category>" for the n-th call, or the
// result of Func if set, or Err if set.
type Generator struct {
	Err  error
	Func func(ctx context.Context, call int, req workflow.GenerateRequest) (string, error)

	mu       sync.Mutex
	requests []workflow.GenerateRequest
}

// Generate implements workflow.Generator.
func (g *Generator) Generate(ctx context.Context, req workflow.GenerateRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	call := len(g.requests)
	g.mu.Unlock()

	if g.Func != nil {
		return g.Func(ctx, call, req)
	}
	if g.Err != nil {
		return "", g.Err
	}
	return fmt.Sprintf("Draft %d for %s", call, req.Category), nil
}

// Requests returns the recorded generation requests.
func (g *Generator) Requests() []workflow.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]workflow.GenerateRequest(nil), g.requests...)
}

// =============================================================================
// Reviewer
// =============================================================================

// Reviewer returns Verdicts in order, repeating the last one once the script
// runs out. With no verdicts it approves.
type Reviewer struct {
	Verdicts []workflow.ReviewResult
	Err      error

	mu    sync.Mutex
	calls int
}

// ScriptedReviewer builds a Reviewer that rejects the first rejections
// drafts and approves afterwards.
func ScriptedReviewer(rejections int) *Reviewer {
	r := &Reviewer{}
	for i := 0; i < rejections; i++ {
		r.Verdicts = append(r.Verdicts, workflow.ReviewResult{
			Status:   workflow.VerdictRejected,
			Feedback: fmt.Sprintf("rejection %d: add more detail", i+1),
		})
	}
	r.Verdicts = append(r.Verdicts, workflow.ReviewResult{Status: workflow.VerdictApproved, Feedback: "looks good"})
	return r
}

// RejectingReviewer rejects every draft.
func RejectingReviewer() *Reviewer {
	return &Reviewer{Verdicts: []workflow.ReviewResult{{Status: workflow.VerdictRejected, Feedback: "not acceptable"}}}
}

// Review implements workflow.Reviewer.
func (r *Reviewer) Review(ctx context.Context, req workflow.ReviewRequest) (workflow.ReviewResult, error) {
	r.mu.Lock()
	call := r.calls
	r.calls++
	r.mu.Unlock()

	if r.Err != nil {
		return workflow.ReviewResult{}, r.Err
	}
	if len(r.Verdicts) == 0 {
		return workflow.ReviewResult{Status: workflow.VerdictApproved, Feedback: "approved"}, nil
	}
	if call >= len(r.Verdicts) {
		call = len(r.Verdicts) - 1
	}
	return r.Verdicts[call], nil
}

// Calls returns the number of Review calls.
func (r *Reviewer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// =============================================================================
// Escalation sink
// =============================================================================

// Sink records escalations in memory, failing with Err if set.
type Sink struct {
	Err error

	// OnRecord, if set, runs inside Record before it returns.
	OnRecord func(rec escalation.Record)

	mu      sync.Mutex
	records []escalation.Record
}

// Name implements the escalation sink label.
func (s *Sink) Name() string { return "memory" }

// Record implements escalation.Sink. Records are kept even when Err is set
// so tests can see the attempt.
func (s *Sink) Record(ctx context.Context, rec escalation.Record) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	if s.OnRecord != nil {
		s.OnRecord(rec)
	}
	return s.Err
}

// Records returns every record received.
func (s *Sink) Records() []escalation.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]escalation.Record(nil), s.records...)
}
