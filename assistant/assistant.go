package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/supportflow/prompt"
	"github.com/randalmurphal/supportflow/workflow"
)

// ErrNoBackend is returned when a capability has no Completer configured.
var ErrNoBackend = errors.New("no language model configured")

// Completer sends one completion request.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Options configures an Assistant. A nil Completer disables that
// capability; calls to it return ErrNoBackend.
type Options struct {
	Classifier Completer
	Generator  Completer
	Reviewer   Completer

	// Prompts (default: embedded prompts only).
	Prompts *prompt.Loader

	// SystemPrompt is sent with every request.
	SystemPrompt string

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// Assistant implements workflow.Classifier, workflow.Generator and
// workflow.Reviewer. It is safe for concurrent use if its Completers are.
type Assistant struct {
	classifier Completer
	generator  Completer
	reviewer   Completer
	prompts    *prompt.Loader
	system     string
	logger     *slog.Logger
}

// New creates an Assistant.
func New(opts Options) *Assistant {
	if opts.Prompts == nil {
		opts.Prompts = prompt.NewLoader("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Assistant{
		classifier: opts.Classifier,
		generator:  opts.Generator,
		reviewer:   opts.Reviewer,
		prompts:    opts.Prompts,
		system:     opts.SystemPrompt,
		logger:     opts.Logger,
	}
}

// =============================================================================
// Capabilities
// =============================================================================

// Classify asks the model for a category name. The raw answer is returned;
// the classification stage normalises it.
func (a *Assistant) Classify(ctx context.Context, subject, description string) (string, error) {
	categories := make([]string, len(workflow.Categories))
	for i, c := range workflow.Categories {
		categories[i] = string(c)
	}

	text, err := a.prompts.Render(prompt.Classify, map[string]any{
		"Subject":     subject,
		"Description": description,
		"Categories":  categories,
	})
	if err != nil {
		return "", err
	}
	return a.complete(ctx, "classify", a.classifier, text)
}

// Generate drafts a customer response.
func (a *Assistant) Generate(ctx context.Context, req workflow.GenerateRequest) (string, error) {
	text, err := a.prompts.Render(prompt.Generate, req)
	if err != nil {
		return "", err
	}
	return a.complete(ctx, "generate", a.generator, text)
}

// Review asks the model to approve or reject a draft.
func (a *Assistant) Review(ctx context.Context, req workflow.ReviewRequest) (workflow.ReviewResult, error) {
	text, err := a.prompts.Render(prompt.Review, req)
	if err != nil {
		return workflow.ReviewResult{}, err
	}
	out, err := a.complete(ctx, "review", a.reviewer, text)
	if err != nil {
		return workflow.ReviewResult{}, err
	}
	return ParseVerdict(out), nil
}

func (a *Assistant) complete(ctx context.Context, capability string, c Completer, text string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%s: %w", capability, ErrNoBackend)
	}

	resp, err := c.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: a.system,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", capability, err)
	}

	a.logger.Debug("completion received",
		"capability", capability,
		"inputTokens", resp.Usage.InputTokens,
		"outputTokens", resp.Usage.OutputTokens,
	)
	return strings.TrimSpace(resp.Content), nil
}

// =============================================================================
// Verdict parsing
// =============================================================================

// Feedback attached to verdicts the model did not explain.
const (
	ApprovedFeedback = "Response meets quality standards"
	UnclearFeedback  = "Review completed successfully"
)

// ParseVerdict interprets a reviewer answer. An answer that starts with
// REJECTED is a rejection carrying the rest of the text as feedback.
// Otherwise any mention of APPROVED approves, a later REJECTED rejects, and
// an answer with neither approves.
func ParseVerdict(text string) workflow.ReviewResult {
	trimmed := strings.TrimLeft(strings.TrimSpace(text), "\"'`*#- ")
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "REJECTED"):
		return workflow.ReviewResult{Status: workflow.VerdictRejected, Feedback: rejectionFeedback(trimmed)}
	case strings.Contains(upper, "APPROVED"):
		return workflow.ReviewResult{Status: workflow.VerdictApproved, Feedback: ApprovedFeedback}
	case strings.Contains(upper, "REJECTED"):
		return workflow.ReviewResult{Status: workflow.VerdictRejected, Feedback: rejectionFeedback(trimmed)}
	}
	return workflow.ReviewResult{Status: workflow.VerdictApproved, Feedback: UnclearFeedback}
}

var rejectedMarker = regexp.MustCompile(`(?i)\**rejected\**\s*[:\-]?\s*`)

// rejectionFeedback strips the first REJECTED marker and its separator.
func rejectionFeedback(text string) string {
	rest := text
	if loc := rejectedMarker.FindStringIndex(text); loc != nil {
		rest = text[:loc[0]] + text[loc[1]:]
	}
	rest = strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "\"'"))
	if rest == "" {
		return "Response rejected without feedback"
	}
	return rest
}
