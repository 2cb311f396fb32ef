package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/supportflow/escalation"
	"github.com/randalmurphal/supportflow/metrics"
)

// =============================================================================
// Node Types
// =============================================================================

// NodeFunc processes state for one stage and returns the updated state.
// Handlers recover every external failure locally; a returned error is an
// internal defect.
type NodeFunc func(ctx context.Context, state State) (State, error)

// SearchConfig parameterises one retrieval pass.
type SearchConfig struct {
	TopK         int
	MinRelevance float64
}

// Config configures the pipeline.
type Config struct {
	MaxRetries  int           // Refinement cycles before escalation (default: 2)
	CallTimeout time.Duration // Per external call (default: 30s)
	Retrieval   SearchConfig  // First retrieval (default: top 3, >= 0.1)
	Refinement  SearchConfig  // Retrieval after rejection (default: top 5, >= 0.05)
	Limits      Limits        // Ticket field limits
	MaxSteps    int           // Driver guard (default: 32, never below MinSteps(MaxRetries))
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  DefaultMaxRetries,
		CallTimeout: 30 * time.Second,
		Retrieval:   SearchConfig{TopK: 3, MinRelevance: 0.1},
		Refinement:  SearchConfig{TopK: 5, MinRelevance: 0.05},
		Limits:      DefaultLimits(),
		MaxSteps:    32,
	}
}

// withDefaults fills zero or negative fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = d.Retrieval.TopK
	}
	if c.Retrieval.MinRelevance <= 0 {
		c.Retrieval.MinRelevance = d.Retrieval.MinRelevance
	}
	if c.Refinement.TopK <= 0 {
		c.Refinement.TopK = d.Refinement.TopK
	}
	if c.Refinement.MinRelevance <= 0 {
		c.Refinement.MinRelevance = d.Refinement.MinRelevance
	}
	if c.Limits.MaxSubjectLength <= 0 {
		c.Limits.MaxSubjectLength = d.Limits.MaxSubjectLength
	}
	if c.Limits.MaxDescriptionLength <= 0 {
		c.Limits.MaxDescriptionLength = d.Limits.MaxDescriptionLength
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = d.MaxSteps
	}
	if minSteps := MinSteps(c.MaxRetries); c.MaxSteps < minSteps {
		c.MaxSteps = minSteps
	}
	return c
}

// MinSteps bounds the stages a run with maxRetries refinement cycles can
// execute: classify and retrieve, generate and review per attempt, refine
// per retry, and one terminal stage, plus one step of slack.
func MinSteps(maxRetries int) int {
	return 3 + 3*(maxRetries+1)
}

// Fallback reasons reported to metrics.
const (
	fallbackUnavailable = "unavailable"
	fallbackFailed      = "failed"
)

// =============================================================================
// Nodes
// =============================================================================

// Nodes holds the stage handlers and their collaborators.
type Nodes struct {
	deps    Dependencies
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewNodes creates the stage handlers. A nil logger uses slog.Default.
func NewNodes(deps Dependencies, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Nodes {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sink == nil {
		deps.Sink = escalation.NopSink{}
	}
	return &Nodes{
		deps:    deps,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: m,
	}
}

// Handler returns the handler for stage, or nil if stage is not executable.
func (n *Nodes) Handler(stage Stage) NodeFunc {
	switch stage {
	case StageClassify:
		return n.Classify
	case StageRetrieve:
		return n.Retrieve
	case StageGenerate:
		return n.Generate
	case StageReview:
		return n.Review
	case StageRefine:
		return n.Refine
	case StageEscalate:
		return n.Escalate
	case StageFinalize:
		return n.Finalize
	}
	return nil
}

// callContext bounds one external call. A timeout is handled like any other
// external failure.
func (n *Nodes) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, n.cfg.CallTimeout)
}

func (n *Nodes) fallback(s State, stage Stage, reason string, err error) {
	n.metrics.RecordFallback(string(stage), reason)
	attrs := []any{"runId", s.RunID, "stage", stage, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	n.logger.Warn("using fallback", attrs...)
}

// =============================================================================
// Node Wrappers
// =============================================================================

// WithTiming wraps a node so its wall time accumulates in
// state.StageDurations and is reported to m.
func WithTiming(stage Stage, node NodeFunc, logger *slog.Logger, m *metrics.Metrics) NodeFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, state State) (State, error) {
		start := time.Now()
		result, err := node(ctx, state)
		duration := time.Since(start)

		if result.StageDurations == nil {
			result.StageDurations = make(map[Stage]time.Duration)
		}
		result.StageDurations[stage] += duration

		m.RecordStage(string(stage), duration, err)
		logger.Debug("stage execution completed", "runId", state.RunID, "stage", stage, "duration", duration)
		return result, err
	}
}
