package workflow

import (
	"context"

	"github.com/randalmurphal/supportflow/checkpoint"
	"github.com/randalmurphal/supportflow/escalation"
)

// =============================================================================
// External capabilities
// =============================================================================
// Implementations must be safe for concurrent use by independent runs.

// Classifier assigns a category to a ticket. The raw label is normalised by
// the classification stage, so implementations may return free text.
type Classifier interface {
	Classify(ctx context.Context, subject, description string) (string, error)
}

// SearchRequest parameterises a context search.
type SearchRequest struct {
	Query          string
	Category       Category
	TopK           int
	MinRelevance   float64
	IncludeRelated bool
}

// Retriever searches the knowledge base. Results should be ordered by
// descending relevance.
type Retriever interface {
	Search(ctx context.Context, req SearchRequest) ([]ContextDocument, error)
}

// GenerateRequest carries everything needed to draft a response. Feedback is
// empty unless the previous draft was rejected.
type GenerateRequest struct {
	Subject     string
	Description string
	Category    Category
	Context     []ContextDocument
	Feedback    string
}

// Generator drafts a customer-facing response.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ReviewRequest carries a draft for quality review.
type ReviewRequest struct {
	Subject     string
	Description string
	Draft       string
	Context     []ContextDocument
}

// ReviewResult is a reviewer's verdict. A Status other than approved or
// rejected is treated as approved.
type ReviewResult struct {
	Status   Verdict
	Feedback string
}

// Reviewer judges a draft.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (ReviewResult, error)
}

// Dependencies are the collaborators an Orchestrator drives. Any capability
// may be nil, in which case its stage uses the local fallback behaviour.
type Dependencies struct {
	Classifier Classifier
	Retriever  Retriever
	Generator  Generator
	Reviewer   Reviewer

	// Sink receives escalation records. Nil discards them.
	Sink escalation.Sink

	// Store holds run checkpoints. Nil uses an in-memory store.
	Store checkpoint.Store
}
