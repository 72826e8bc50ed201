package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	togetherBaseURL = "https://api.together.xyz/v1"
	xaiBaseURL      = "https://api.x.ai/v1"
	deepseekBaseURL = "https://api.deepseek.com/v1"
)

// CompatAdapter implements the Adapter interface for providers exposing an
// OpenAI-compatible chat completions API (Together, xAI, DeepSeek).
type CompatAdapter struct {
	name   string
	models []string
	client openai.Client
}

// NewCompatAdapter creates an adapter for an OpenAI-compatible endpoint.
func NewCompatAdapter(name, baseURL, apiKey string, models []string) (*CompatAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%s base URL is required", name)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &CompatAdapter{name: name, models: models, client: client}, nil
}

// NewTogetherAdapter creates a Together AI adapter.
func NewTogetherAdapter(apiKey string) (*CompatAdapter, error) {
	return NewCompatAdapter("together", togetherBaseURL, apiKey, []string{
		"meta-llama/Llama-3.3-70B-Instruct-Turbo",
		"mistralai/Mixtral-8x7B-Instruct-v0.1",
	})
}

// NewXAIAdapter creates an xAI Grok adapter.
func NewXAIAdapter(apiKey string) (*CompatAdapter, error) {
	return NewCompatAdapter("xai", xaiBaseURL, apiKey, []string{
		"grok-3",
		"grok-3-mini",
	})
}

// NewDeepSeekAdapter creates a DeepSeek adapter.
func NewDeepSeekAdapter(apiKey string) (*CompatAdapter, error) {
	return NewCompatAdapter("deepseek", deepseekBaseURL, apiKey, []string{
		"deepseek-chat",
		"deepseek-reasoner",
	})
}

// Name returns the adapter identifier.
func (a *CompatAdapter) Name() string {
	return a.name
}

// Models returns the list of supported models.
func (a *CompatAdapter) Models() []string {
	return a.models
}

// Generate sends a prompt to the provider and returns the reply.
func (a *CompatAdapter) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	return chatCompletion(ctx, a.client, a.name, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(4096),
	})
}
