package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/supportflow/task"
	"github.com/randalmurphal/supportflow/workflow"
)

// ErrInvalidValue is wrapped by every Load error.
var ErrInvalidValue = errors.New("invalid config value")

// Configuration keys.
const (
	KeyMaxRetries            = "max_retries"
	KeyCallTimeout           = "call_timeout"
	KeyMaxSubjectLength      = "max_subject_length"
	KeyMaxDescriptionLength  = "max_description_length"
	KeyRetrievalTopK         = "retrieval_top_k"
	KeyRetrievalMinRelevance = "retrieval_min_relevance"
	KeyRefineTopK            = "refine_top_k"
	KeyRefineMinRelevance    = "refine_min_relevance"
	KeyKnowledgeBaseDir      = "knowledge_base_dir"
	KeyEscalationLog         = "escalation_log"
	KeyLLMProvider           = "llm_provider"
	KeyModelClassify         = "llm_model_classify"
	KeyModelGenerate         = "llm_model_generate"
	KeyModelReview           = "llm_model_review"
	KeyOpenAIBaseURL         = "openai_base_url"
	KeyOpenAIAPIKey          = "openai_api_key"
	KeyEmbeddingProvider     = "embedding_provider"
	KeyEmbeddingModel        = "embedding_model"
	KeyEmbeddingCacheDir     = "embedding_cache_dir"
	KeyCheckpointDriver      = "checkpoint_driver"
	KeyCheckpointPath        = "checkpoint_path"
	KeySlackWebhookURL       = "slack_webhook_url"
	KeyWebhookURL            = "webhook_url"
	KeyNATSURL               = "nats_url"
	KeyNATSSubject           = "nats_subject"
	KeyGitHubToken           = "github_token"
	KeyGitHubRepo            = "github_repo"
	KeyGitLabToken           = "gitlab_token"
	KeyGitLabURL             = "gitlab_url"
	KeyGitLabProject         = "gitlab_project"
	KeyListenAddr            = "listen_addr"
	KeyJWTSecret             = "jwt_secret"
	KeyJWTIssuer             = "jwt_issuer"
	KeyLogLevel              = "log_level"
	KeyLogFormat             = "log_format"
)

// LLM providers.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Embedding providers.
const (
	EmbeddingTFIDF     = "tfidf"
	EmbeddingOpenAI    = "openai"
	EmbeddingFastEmbed = "fastembed"
)

// Checkpoint drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Defaults returns the built-in value of every key.
func Defaults() map[string]string {
	wf := workflow.DefaultConfig()
	return map[string]string{
		KeyMaxRetries:            strconv.Itoa(wf.MaxRetries),
		KeyCallTimeout:           wf.CallTimeout.String(),
		KeyMaxSubjectLength:      strconv.Itoa(wf.Limits.MaxSubjectLength),
		KeyMaxDescriptionLength:  strconv.Itoa(wf.Limits.MaxDescriptionLength),
		KeyRetrievalTopK:         strconv.Itoa(wf.Retrieval.TopK),
		KeyRetrievalMinRelevance: formatFloat(wf.Retrieval.MinRelevance),
		KeyRefineTopK:            strconv.Itoa(wf.Refinement.TopK),
		KeyRefineMinRelevance:    formatFloat(wf.Refinement.MinRelevance),
		KeyKnowledgeBaseDir:      "data",
		KeyEscalationLog:         "escalations.csv",
		KeyLLMProvider:           ProviderClaude,
		KeyModelClassify:         "",
		KeyModelGenerate:         "",
		KeyModelReview:           "",
		KeyOpenAIBaseURL:         "",
		KeyOpenAIAPIKey:          "",
		KeyEmbeddingProvider:     EmbeddingTFIDF,
		KeyEmbeddingModel:        "",
		KeyEmbeddingCacheDir:     "",
		KeyCheckpointDriver:      DriverMemory,
		KeyCheckpointPath:        "",
		KeySlackWebhookURL:       "",
		KeyWebhookURL:            "",
		KeyNATSURL:               "",
		KeyNATSSubject:           "supportflow.escalations",
		KeyGitHubToken:           "",
		KeyGitHubRepo:            "",
		KeyGitLabToken:           "",
		KeyGitLabURL:             "",
		KeyGitLabProject:         "",
		KeyListenAddr:            ":8080",
		KeyJWTSecret:             "",
		KeyJWTIssuer:             "supportflow",
		KeyLogLevel:              "info",
		KeyLogFormat:             "text",
	}
}

// Settings is the typed form of a resolved configuration.
type Settings struct {
	// Pipeline
	MaxRetries            int
	CallTimeout           time.Duration
	MaxSubjectLength      int
	MaxDescriptionLength  int
	RetrievalTopK         int
	RetrievalMinRelevance float64
	RefineTopK            int
	RefineMinRelevance    float64

	// Knowledge base and escalation log
	KnowledgeBaseDir string
	EscalationLog    string

	// Language model backends
	LLMProvider   string
	Models        map[task.Type]string
	OpenAIBaseURL string
	OpenAIAPIKey  string

	// Knowledge base embeddings
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingCacheDir string

	// Checkpoints
	CheckpointDriver string
	CheckpointPath   string

	// Notifications and escalation sinks
	SlackWebhookURL string
	WebhookURL      string
	NATSURL         string
	NATSSubject     string
	GitHubToken     string
	GitHubRepo      string
	GitLabToken     string
	GitLabURL       string
	GitLabProject   string

	// HTTP API
	ListenAddr string
	JWTSecret  string
	JWTIssuer  string

	// Logging
	LogLevel  slog.Level
	LogFormat string
}

// Load converts a resolved configuration into Settings. Errors wrap
// ErrInvalidValue and name the offending key.
func Load(r *Resolved) (Settings, error) {
	p := parser{r: r}
	s := Settings{
		MaxRetries:            p.positiveInt(KeyMaxRetries),
		CallTimeout:           p.duration(KeyCallTimeout),
		MaxSubjectLength:      p.positiveInt(KeyMaxSubjectLength),
		MaxDescriptionLength:  p.positiveInt(KeyMaxDescriptionLength),
		RetrievalTopK:         p.positiveInt(KeyRetrievalTopK),
		RetrievalMinRelevance: p.relevance(KeyRetrievalMinRelevance),
		RefineTopK:            p.positiveInt(KeyRefineTopK),
		RefineMinRelevance:    p.relevance(KeyRefineMinRelevance),

		KnowledgeBaseDir: r.Get(KeyKnowledgeBaseDir),
		EscalationLog:    r.Get(KeyEscalationLog),

		LLMProvider: p.oneOf(KeyLLMProvider, ProviderClaude, ProviderOpenAI, ProviderNone),
		Models: task.Models(map[task.Type]string{
			task.Classify: r.Get(KeyModelClassify),
			task.Generate: r.Get(KeyModelGenerate),
			task.Review:   r.Get(KeyModelReview),
		}),
		OpenAIBaseURL: r.Get(KeyOpenAIBaseURL),
		OpenAIAPIKey:  r.Get(KeyOpenAIAPIKey),

		EmbeddingProvider: p.oneOf(KeyEmbeddingProvider, EmbeddingTFIDF, EmbeddingOpenAI, EmbeddingFastEmbed),
		EmbeddingModel:    r.Get(KeyEmbeddingModel),
		EmbeddingCacheDir: r.Get(KeyEmbeddingCacheDir),

		CheckpointDriver: p.oneOf(KeyCheckpointDriver, DriverMemory, DriverFile, DriverSQLite),
		CheckpointPath:   r.Get(KeyCheckpointPath),

		SlackWebhookURL: r.Get(KeySlackWebhookURL),
		WebhookURL:      r.Get(KeyWebhookURL),
		NATSURL:         r.Get(KeyNATSURL),
		NATSSubject:     r.Get(KeyNATSSubject),
		GitHubToken:     r.Get(KeyGitHubToken),
		GitHubRepo:      r.Get(KeyGitHubRepo),
		GitLabToken:     r.Get(KeyGitLabToken),
		GitLabURL:       r.Get(KeyGitLabURL),
		GitLabProject:   r.Get(KeyGitLabProject),

		ListenAddr: r.Get(KeyListenAddr),
		JWTSecret:  r.Get(KeyJWTSecret),
		JWTIssuer:  r.Get(KeyJWTIssuer),

		LogLevel:  p.level(KeyLogLevel),
		LogFormat: p.oneOf(KeyLogFormat, "text", "json"),
	}
	if p.err != nil {
		return Settings{}, p.err
	}
	if s.CheckpointDriver != DriverMemory && s.CheckpointPath == "" {
		return Settings{}, fmt.Errorf("%w: %s is required for checkpoint driver %q",
			ErrInvalidValue, KeyCheckpointPath, s.CheckpointDriver)
	}
	if s.EmbeddingProvider == EmbeddingOpenAI && s.EmbeddingModel == "" {
		return Settings{}, fmt.Errorf("%w: %s is required when %s is %q",
			ErrInvalidValue, KeyEmbeddingModel, KeyEmbeddingProvider, s.EmbeddingProvider)
	}
	if s.GitHubRepo != "" {
		if _, _, ok := s.GitHubOwnerRepo(); !ok {
			return Settings{}, fmt.Errorf("%w: %s must be owner/name, got %q",
				ErrInvalidValue, KeyGitHubRepo, s.GitHubRepo)
		}
	}
	return s, nil
}

// WorkflowConfig returns the pipeline configuration.
func (s Settings) WorkflowConfig() workflow.Config {
	cfg := workflow.DefaultConfig()
	cfg.MaxRetries = s.MaxRetries
	cfg.CallTimeout = s.CallTimeout
	cfg.Retrieval = workflow.SearchConfig{TopK: s.RetrievalTopK, MinRelevance: s.RetrievalMinRelevance}
	cfg.Refinement = workflow.SearchConfig{TopK: s.RefineTopK, MinRelevance: s.RefineMinRelevance}
	cfg.Limits = workflow.Limits{
		MaxSubjectLength:     s.MaxSubjectLength,
		MaxDescriptionLength: s.MaxDescriptionLength,
	}
	return cfg
}

// GitHubOwnerRepo splits GitHubRepo into owner and name.
func (s Settings) GitHubOwnerRepo() (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(s.GitHubRepo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

// Logger builds the process logger from LogLevel and LogFormat.
func (s Settings) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.LogLevel}
	if s.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parser records the first conversion error.
type parser struct {
	r   *Resolved
	err error
}

func (p *parser) fail(key, value, want string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q: %s", ErrInvalidValue, key, value, want)
	}
}

func (p *parser) positiveInt(key string) int {
	v := p.r.Get(key)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		p.fail(key, v, "want a positive integer")
		return 0
	}
	return n
}

func (p *parser) duration(key string) time.Duration {
	v := p.r.Get(key)
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		p.fail(key, v, "want a positive duration such as 30s")
		return 0
	}
	return d
}

func (p *parser) relevance(key string) float64 {
	v := p.r.Get(key)
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 || f > 1 {
		p.fail(key, v, "want a number between 0 and 1")
		return 0
	}
	return f
}

func (p *parser) oneOf(key string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(p.r.Get(key)))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.fail(key, p.r.Get(key), "want one of "+strings.Join(allowed, ", "))
	return ""
}

func (p *parser) level(key string) slog.Level {
	var lvl slog.Level
	v := p.r.Get(key)
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		p.fail(key, v, "want debug, info, warn or error")
	}
	return lvl
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
