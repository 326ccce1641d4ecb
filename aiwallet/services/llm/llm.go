package llm

import (
	"aiwallet/aiwallet/config"
	httputils "aiwallet/aiwallet/utils/http"
	"aiwallet/aiwallet/utils/logging"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from AI")

// CompletionRequest is a single-turn prompt: a system instruction plus the user text.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

func (r CompletionRequest) temperature() float64 {
	if r.Temperature <= 0 {
		return DefaultTemperature
	}
	return r.Temperature
}

func (r CompletionRequest) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Provider is an LLM backend returning the raw text of one completion.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NewProvider picks the backend named by AI_PROVIDER. Unknown names use OpenAI.
func NewProvider(cfg config.Config) Provider {
	var p Provider
	switch cfg.AIProvider {
	case "gemini":
		p = NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	case "anthropic":
		p = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case "ollama":
		p = NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel)
	default:
		p = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
	}
	logging.AppLogger.Info("Using AI Provider", zap.String("provider", p.Name()))
	return p
}

// OllamaClient talks to a local Ollama server, handy for development without API keys.
type OllamaClient struct {
	baseURL string
	model   string
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{baseURL: baseURL, model: model}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (c *OllamaClient) Name() string { return "ollama" }

func (c *OllamaClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	defer logging.LogDuration(ctx, "ollama_complete")()

	body := ollamaChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Format: "json",
		Options: map[string]interface{}{
			"temperature": req.temperature(),
			"num_predict": req.maxTokens(),
		},
	}
	var resp ollamaChatResponse
	if err := httputils.PostJSON(ctx, c.baseURL+"/chat", nil, body, &resp); err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Message.Content, nil
}
