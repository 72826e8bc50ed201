package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelAliases manages model alias resolution and validation.
type ModelAliases struct {
	Aliases   map[string]string   `yaml:"aliases"`
	Providers map[string][]string `yaml:"providers"`
}

// LoadAliases reads model aliases from a YAML file.
func LoadAliases(path string) (*ModelAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var aliases ModelAliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, err
	}

	// Initialize maps if nil
	if aliases.Aliases == nil {
		aliases.Aliases = make(map[string]string)
	}
	if aliases.Providers == nil {
		aliases.Providers = make(map[string][]string)
	}

	return &aliases, nil
}

// LoadAliasesWithFallback loads models.yaml from the config directory,
// falling back to the built-in aliases when the file is absent.
func LoadAliasesWithFallback(configDir string) (*ModelAliases, error) {
	if configDir != "" {
		path := filepath.Join(configDir, "models.yaml")
		if _, err := os.Stat(path); err == nil {
			return LoadAliases(path)
		}
	}
	return DefaultAliases(), nil
}

// Resolve returns the canonical model name for an alias.
// If the input is not an alias, it returns the input unchanged.
func (a *ModelAliases) Resolve(modelOrAlias string) string {
	if a == nil || a.Aliases == nil {
		return modelOrAlias
	}
	if canonical, ok := a.Aliases[modelOrAlias]; ok {
		return canonical
	}
	return modelOrAlias
}

// IsAlias returns true if the given string is a known alias.
func (a *ModelAliases) IsAlias(name string) bool {
	if a == nil || a.Aliases == nil {
		return false
	}
	_, ok := a.Aliases[name]
	return ok
}

// ValidateModel checks if a model exists in the provider's list.
// Returns nil if valid, or an error describing the problem.
func (a *ModelAliases) ValidateModel(adapter, model string) error {
	if a == nil || a.Providers == nil {
		return nil // No validation possible without provider info
	}

	models, ok := a.Providers[adapter]
	if !ok {
		return fmt.Errorf("unknown adapter %q", adapter)
	}

	for _, m := range models {
		if m == model {
			return nil
		}
	}

	return fmt.Errorf("model %q not in %s provider list", model, adapter)
}

// ListAliases returns a copy of the aliases map.
func (a *ModelAliases) ListAliases() map[string]string {
	if a == nil || a.Aliases == nil {
		return make(map[string]string)
	}
	result := make(map[string]string, len(a.Aliases))
	for k, v := range a.Aliases {
		result[k] = v
	}
	return result
}

// ListProviders returns a sorted list of provider names.
func (a *ModelAliases) ListProviders() []string {
	if a == nil || a.Providers == nil {
		return nil
	}
	providers := make([]string, 0, len(a.Providers))
	for p := range a.Providers {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// GetProviderModels returns the models for a given provider.
func (a *ModelAliases) GetProviderModels(provider string) []string {
	if a == nil || a.Providers == nil {
		return nil
	}
	return a.Providers[provider]
}

// GetProviderForModel returns the provider name for a canonical model.
func (a *ModelAliases) GetProviderForModel(model string) string {
	if a == nil || a.Providers == nil {
		return ""
	}
	for provider, models := range a.Providers {
		for _, m := range models {
			if m == model {
				return provider
			}
		}
	}
	return ""
}

// ValidatePanelConfig checks that every panel member resolves to a model
// its provider offers. Returns a slice of validation errors (empty if all valid).
func (a *ModelAliases) ValidatePanelConfig(cfg *PanelConfig) []error {
	if a == nil || cfg == nil {
		return nil
	}

	var errors []error
	for _, member := range cfg.Members {
		model := a.Resolve(member.Model)
		if err := a.ValidateModel(member.Adapter, model); err != nil {
			errors = append(errors, fmt.Errorf("member %q: %w", member.Key(), err))
		}
	}
	return errors
}

// ResolvePanel returns a copy of the panel with member model aliases replaced
// by canonical names.
func (a *ModelAliases) ResolvePanel(cfg *PanelConfig) *PanelConfig {
	if cfg == nil {
		return nil
	}
	out := *cfg
	out.Members = make([]Member, len(cfg.Members))
	for i, m := range cfg.Members {
		m.Model = a.Resolve(m.Model)
		out.Members[i] = m
	}
	return &out
}

// DefaultAliases returns the default model aliases configuration.
func DefaultAliases() *ModelAliases {
	return &ModelAliases{
		Aliases: map[string]string{
			"fast":      "gpt-4o-mini",
			"flagship":  "gpt-4o",
			"reasoning": "o3-mini",
			"sonnet":    "claude-sonnet-4-20250514",
			"haiku":     "claude-3-5-haiku-20241022",
			"flash":     "gemini-2.0-flash",
			"gemini":    "gemini-1.5-pro",
			"llama":     "meta-llama/Llama-3.3-70B-Instruct-Turbo",
			"grok":      "grok-3",
			"cheap":     "deepseek-chat",
			"reason":    "deepseek-reasoner",
		},
		Providers: map[string][]string{
			"openai":    {"gpt-4o", "gpt-4o-mini", "o3-mini"},
			"anthropic": {"claude-sonnet-4-20250514", "claude-3-5-haiku-20241022"},
			"google":    {"gemini-2.0-flash", "gemini-1.5-pro"},
			"together":  {"meta-llama/Llama-3.3-70B-Instruct-Turbo", "mistralai/Mixtral-8x7B-Instruct-v0.1"},
			"xai":       {"grok-3", "grok-3-mini"},
			"deepseek":  {"deepseek-chat", "deepseek-reasoner"},
		},
	}
}
