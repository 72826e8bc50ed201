package adapter

import (
	"context"
)

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a prompt to the model and returns the raw reply.
	Generate(ctx context.Context, model string, prompt string) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Providers lists the adapter names the service knows how to build, in
// display order.
var Providers = []string{"openai", "anthropic", "google", "together", "xai", "deepseek"}
