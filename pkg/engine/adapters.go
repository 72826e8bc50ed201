package engine

import (
	"fmt"

	"github.com/dheena017/multimind/pkg/adapter"
	"github.com/dheena017/multimind/pkg/config"
)

var constructors = map[string]func(apiKey string) (adapter.Adapter, error){
	"openai": func(k string) (adapter.Adapter, error) { return adapter.NewOpenAIAdapter(k) },
	"anthropic": func(k string) (adapter.Adapter, error) {
		return adapter.NewAnthropicAdapter(k)
	},
	"google":   func(k string) (adapter.Adapter, error) { return adapter.NewGoogleAdapter(k) },
	"together": func(k string) (adapter.Adapter, error) { return adapter.NewTogetherAdapter(k) },
	"xai":      func(k string) (adapter.Adapter, error) { return adapter.NewXAIAdapter(k) },
	"deepseek": func(k string) (adapter.Adapter, error) { return adapter.NewDeepSeekAdapter(k) },
}

// BuildAdapters creates an adapter for every provider with an API key.
func BuildAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)
	for _, name := range adapter.Providers {
		key := cfg.APIKey(name)
		if key == "" {
			continue
		}
		build, ok := constructors[name]
		if !ok {
			continue
		}
		a, err := build(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s adapter: %w", name, err)
		}
		adapters[name] = a
	}
	return adapters, nil
}
