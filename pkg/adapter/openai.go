package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter implements the Adapter interface for OpenAI models.
type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Models returns the list of supported OpenAI models.
func (a *OpenAIAdapter) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"o3-mini",
	}
}

// Generate sends a prompt to OpenAI and returns the reply.
func (a *OpenAIAdapter) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	return chatCompletion(ctx, a.client, a.Name(), openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(4096),
	})
}

// chatCompletion runs a chat completion and normalizes the reply. It is
// shared by every provider speaking the OpenAI wire format.
func chatCompletion(ctx context.Context, client openai.Client, name string, params openai.ChatCompletionNewParams) (*Response, error) {
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, statusError(name, apiErr.StatusCode, err)
		}
		return nil, statusError(name, 0, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", name)
	}

	out := NewResponse(resp.Choices[0].Message.Content, name, string(params.Model))
	out.FinishReason = string(resp.Choices[0].FinishReason)
	return out.WithUsage(
		int(resp.Usage.PromptTokens),
		int(resp.Usage.CompletionTokens),
		int(resp.Usage.TotalTokens),
	), nil
}
