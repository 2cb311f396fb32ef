package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/randalmurphal/supportflow/assistant"
	"github.com/randalmurphal/supportflow/checkpoint"
	"github.com/randalmurphal/supportflow/config"
	clierrors "github.com/randalmurphal/supportflow/errors"
	"github.com/randalmurphal/supportflow/escalation"
	"github.com/randalmurphal/supportflow/metrics"
	"github.com/randalmurphal/supportflow/notify"
	"github.com/randalmurphal/supportflow/prompt"
	"github.com/randalmurphal/supportflow/retrieval"
	"github.com/randalmurphal/supportflow/task"
	"github.com/randalmurphal/supportflow/workflow"
)

// app holds the wired pipeline and everything that must be closed with it.
type app struct {
	orch     *workflow.Orchestrator
	kb       *retrieval.KnowledgeBase
	registry *prometheus.Registry
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// buildApp wires the pipeline from settings.
func buildApp(ctx context.Context, s config.Settings, logger *slog.Logger) (_ *app, err error) {
	a := &app{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	var closeKB func() error
	a.kb, closeKB, err = openKnowledgeBase(ctx, s, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeKB)

	store, err := openStore(s)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	notifier := buildNotifier(s, logger)

	sink, closeSink, err := buildSink(s, logger)
	if err != nil {
		return nil, err
	}
	if closeSink != nil {
		a.closers = append(a.closers, closeSink)
	}

	deps := workflow.Dependencies{
		Retriever: a.kb,
		Sink:      sink,
		Store:     store,
	}
	if asst := buildAssistant(s, logger); asst != nil {
		deps.Classifier = asst
		deps.Generator = asst
		deps.Reviewer = asst
	}

	a.orch = workflow.New(deps, s.WorkflowConfig(),
		workflow.WithLogger(logger),
		workflow.WithMetrics(m),
		workflow.WithNotifier(notifier),
	)
	return a, nil
}

// openKnowledgeBase loads the knowledge base with the configured embedder.
// The returned func releases the embedder.
func openKnowledgeBase(ctx context.Context, s config.Settings, logger *slog.Logger) (*retrieval.KnowledgeBase, func() error, error) {
	opts := retrieval.Options{Dir: s.KnowledgeBaseDir, Logger: logger}
	closeFn := func() error { return nil }

	switch s.EmbeddingProvider {
	case config.EmbeddingOpenAI:
		embedder, err := assistant.NewOpenAIEmbedder(openAIConfig(s, ""), s.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		opts.Embedder = embedder
	case config.EmbeddingFastEmbed:
		fe, err := retrieval.NewFastEmbedder(retrieval.FastEmbedConfig{
			Model:    s.EmbeddingModel,
			CacheDir: s.EmbeddingCacheDir,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load embedding model: %w", err)
		}
		opts.Embedder = fe
		closeFn = fe.Close
	}

	kb, err := retrieval.New(ctx, opts)
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("load knowledge base: %w", err)
	}
	logger.Debug("knowledge base loaded", "embedding", s.EmbeddingProvider, "documents", kb.Stats().TotalDocuments)
	return kb, closeFn, nil
}

func openStore(s config.Settings) (checkpoint.Store, error) {
	switch s.CheckpointDriver {
	case config.DriverFile:
		return checkpoint.NewFileStore(s.CheckpointPath)
	case config.DriverSQLite:
		return checkpoint.NewSQLiteStore(s.CheckpointPath)
	default:
		return checkpoint.NewMemoryStore(), nil
	}
}

func buildNotifier(s config.Settings, logger *slog.Logger) notify.Notifier {
	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if s.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(s.SlackWebhookURL, notify.WithSlackUsername("supportflow")))
	}
	if s.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(s.WebhookURL, nil))
	}
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return notify.NewMultiNotifier(notifiers...)
}

// buildSink assembles the escalation sinks. The CSV log is always written;
// the others are enabled by their settings. Notifiers are not sinks: the
// orchestrator announces every outcome, escalations included.
func buildSink(s config.Settings, logger *slog.Logger) (escalation.Sink, func() error, error) {
	sinks := []escalation.Sink{escalation.NewCSVSink(s.EscalationLog)}
	var closeFn func() error

	if s.NATSURL != "" {
		nc, err := escalation.ConnectNATS(s.NATSURL)
		if err != nil {
			return nil, nil, clierrors.WrapConnectionError(err, "NATS", s.NATSURL)
		}
		sinks = append(sinks, escalation.NewNATSSink(nc, s.NATSSubject))
		closeFn = func() error { return nc.Drain() }
	}
	if s.GitHubToken != "" && s.GitHubRepo != "" {
		owner, repo, _ := s.GitHubOwnerRepo()
		gh, err := escalation.NewGitHubIssueSink(s.GitHubToken, owner, repo, "support", "escalation")
		if err != nil {
			return nil, closeFn, err
		}
		sinks = append(sinks, gh)
	}
	if s.GitLabToken != "" && s.GitLabProject != "" {
		gl, err := escalation.NewGitLabIssueSink(s.GitLabToken, s.GitLabURL, s.GitLabProject, "support", "escalation")
		if err != nil {
			return nil, closeFn, err
		}
		sinks = append(sinks, gl)
	}

	multi := escalation.NewMultiSink(sinks...)
	multi.Logger = logger
	return multi, closeFn, nil
}

// buildAssistant returns nil when no provider is configured, so every
// capability uses its local fallback.
func buildAssistant(s config.Settings, logger *slog.Logger) *assistant.Assistant {
	var completer func(model string) assistant.Completer
	switch s.LLMProvider {
	case config.ProviderClaude:
		completer = assistant.NewClaudeCLI
	case config.ProviderOpenAI:
		completer = func(model string) assistant.Completer {
			c, err := assistant.NewOpenAI(openAIConfig(s, model))
			if err != nil {
				logger.Warn("language model unavailable", "provider", s.LLMProvider, "model", model, "error", err)
				return nil
			}
			return c
		}
	default:
		return nil
	}

	opts := assistant.Options{
		Prompts: prompt.NewLoader(projectDir()),
		Logger:  logger,
	}
	if c := completer(s.Models[task.Classify]); c != nil {
		opts.Classifier = c
	}
	if c := completer(s.Models[task.Generate]); c != nil {
		opts.Generator = c
	}
	if c := completer(s.Models[task.Review]); c != nil {
		opts.Reviewer = c
	}
	return assistant.New(opts)
}

func openAIConfig(s config.Settings, model string) assistant.OpenAIConfig {
	return assistant.OpenAIConfig{
		BaseURL: s.OpenAIBaseURL,
		APIKey:  s.OpenAIAPIKey,
		Model:   model,
	}
}

// projectDir is where .supportflow/prompts overrides are looked up.
func projectDir() string {
	if root := config.NewResolver().GitRoot(); root != "" {
		return root
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}
