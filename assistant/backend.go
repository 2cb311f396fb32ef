package assistant

import (
	"context"
	"errors"
	"fmt"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse indicates the model returned no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// NewClaudeCLI returns a Completer backed by the Claude CLI.
func NewClaudeCLI(model string) Completer {
	return llm.NewClaudeCLI(llm.WithModel(model))
}

// =============================================================================
// OpenAI-compatible backend
// =============================================================================

// OpenAIConfig configures an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string  // Empty uses the OpenAI API
	APIKey      string  // Empty sends a placeholder, for local servers
	Model       string  // Chat model
	Temperature float64 // Sampling temperature (default: 0.1)
	MaxTokens   int     // Response cap (default: 1000)
}

func (c OpenAIConfig) options(model string) []openai.Option {
	apiKey := c.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for servers that ignore it.
		apiKey = "placeholder"
	}
	opts := []openai.Option{openai.WithToken(apiKey)}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if c.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.BaseURL))
	}
	return opts
}

// LangChain adapts a langchaingo model to Completer.
type LangChain struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

// NewLangChain wraps model. Zero temperature and maxTokens use the defaults.
func NewLangChain(model llms.Model, temperature float64, maxTokens int) *LangChain {
	if temperature <= 0 {
		temperature = 0.1
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &LangChain{model: model, temperature: temperature, maxTokens: maxTokens}
}

// NewOpenAI creates a Completer for an OpenAI-compatible chat endpoint.
func NewOpenAI(cfg OpenAIConfig) (*LangChain, error) {
	m, err := openai.New(cfg.options(cfg.Model)...)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}
	return NewLangChain(m, cfg.Temperature, cfg.MaxTokens), nil
}

// NewOpenAIEmbedder creates a langchaingo embedder for an OpenAI-compatible
// embeddings endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig, model string) (embeddings.Embedder, error) {
	m, err := openai.New(append(cfg.options(""), openai.WithEmbeddingModel(model))...)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}
	e, err := embeddings.NewEmbedder(m)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return e, nil
}

// Complete implements Completer.
func (l *LangChain) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	msgs := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, m := range req.Messages {
		msgs = append(msgs, llms.TextParts(messageType(string(m.Role)), m.Content))
	}

	resp, err := l.model.GenerateContent(ctx, msgs,
		llms.WithTemperature(l.temperature),
		llms.WithMaxTokens(l.maxTokens),
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	out := &llm.CompletionResponse{Content: choice.Content}
	out.Usage.InputTokens = intInfo(choice.GenerationInfo, "PromptTokens")
	out.Usage.OutputTokens = intInfo(choice.GenerationInfo, "CompletionTokens")
	return out, nil
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func intInfo(info map[string]any, key string) int {
	if v, ok := info[key].(int); ok {
		return v
	}
	return 0
}
