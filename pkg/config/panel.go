package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Model tiers used by the router's complexity alignment table.
const (
	TierFast     = "fast"
	TierBalanced = "balanced"
	TierFrontier = "frontier"
)

// PanelConfig describes which provider/model pairs answer a query and how
// they are called.
type PanelConfig struct {
	Members        []Member             `yaml:"members"`
	MaxModels      map[string]int       `yaml:"max_models,omitempty"`
	Concurrency    int                  `yaml:"concurrency,omitempty"`
	TimeoutSeconds int                  `yaml:"timeout_seconds,omitempty"`
	RateLimits     map[string]RateLimit `yaml:"rate_limits,omitempty"`
	Retry          RetryConfig          `yaml:"retry,omitempty"`
	Fallback       FallbackConfig       `yaml:"fallback,omitempty"`
	Pricing        PricingConfig        `yaml:"pricing,omitempty"`
}

// Member is a single provider/model pair on the panel.
type Member struct {
	Adapter string  `yaml:"adapter"`
	Model   string  `yaml:"model"`
	Tier    string  `yaml:"tier,omitempty"`
	Quality float64 `yaml:"quality"`
}

// DefaultQuality is the prior used for a member whose quality key is absent.
const DefaultQuality = 0.7

// UnmarshalYAML applies DefaultQuality only when the quality key is missing,
// so an explicit 0 survives.
func (m *Member) UnmarshalYAML(value *yaml.Node) error {
	type plain Member
	p := plain{Quality: DefaultQuality}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*m = Member(p)
	return nil
}

// Key returns the "adapter/model" identifier.
func (m Member) Key() string {
	return m.Adapter + "/" + m.Model
}

// RouteTarget specifies an adapter and model combination.
type RouteTarget struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
}

// RateLimit caps calls per second to a provider.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"rps"`
	Burst             int     `yaml:"burst,omitempty"`
}

// RetryConfig defines retry and backoff behavior.
type RetryConfig struct {
	MaxRetries    int `yaml:"max_retries,omitempty"`
	BaseBackoffMs int `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs  int `yaml:"max_backoff_ms,omitempty"`
}

// FallbackConfig defines adapter/model fallbacks.
type FallbackConfig struct {
	AllowFallback bool                     `yaml:"allow_fallback,omitempty"`
	FallbackChain map[string][]RouteTarget `yaml:"fallback_chain,omitempty"`
}

// PricingConfig maps adapter -> model -> pricing.
type PricingConfig map[string]map[string]ModelPricing

// ModelPricing defines per-1k token pricing.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty"`
}

// LoadPanelConfig reads panel configuration from a YAML file.
func LoadPanelConfig(path string) (*PanelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg PanelConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyPanelDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPanelConfig returns the default panel: one or two models per
// supported provider.
func DefaultPanelConfig() *PanelConfig {
	cfg := &PanelConfig{
		Members: []Member{
			{Adapter: "openai", Model: "gpt-4o", Tier: TierFrontier, Quality: 0.90},
			{Adapter: "openai", Model: "gpt-4o-mini", Tier: TierFast, Quality: 0.70},
			{Adapter: "anthropic", Model: "claude-sonnet-4-20250514", Tier: TierFrontier, Quality: 0.92},
			{Adapter: "anthropic", Model: "claude-3-5-haiku-20241022", Tier: TierFast, Quality: 0.72},
			{Adapter: "google", Model: "gemini-2.0-flash", Tier: TierBalanced, Quality: 0.80},
			{Adapter: "google", Model: "gemini-1.5-pro", Tier: TierFrontier, Quality: 0.85},
			{Adapter: "together", Model: "meta-llama/Llama-3.3-70B-Instruct-Turbo", Tier: TierBalanced, Quality: 0.75},
			{Adapter: "xai", Model: "grok-3", Tier: TierFrontier, Quality: 0.85},
			{Adapter: "deepseek", Model: "deepseek-chat", Tier: TierBalanced, Quality: 0.78},
			{Adapter: "deepseek", Model: "deepseek-reasoner", Tier: TierFrontier, Quality: 0.84},
		},
		Pricing: PricingConfig{
			"openai": {
				"gpt-4o":      {PromptPer1K: 0.0025, CompletionPer1K: 0.010},
				"gpt-4o-mini": {PromptPer1K: 0.00015, CompletionPer1K: 0.0006},
			},
			"anthropic": {
				"claude-sonnet-4-20250514":  {PromptPer1K: 0.003, CompletionPer1K: 0.015},
				"claude-3-5-haiku-20241022": {PromptPer1K: 0.0008, CompletionPer1K: 0.004},
			},
			"deepseek": {
				"default": {PromptPer1K: 0.00027, CompletionPer1K: 0.0011},
			},
		},
	}

	applyPanelDefaults(cfg)
	return cfg
}

// Validate checks that every member names an adapter, a model and a known tier.
func (c *PanelConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("panel config is nil")
	}
	seen := make(map[string]bool, len(c.Members))
	for i, m := range c.Members {
		if m.Adapter == "" || m.Model == "" {
			return fmt.Errorf("member %d: adapter and model are required", i)
		}
		switch m.Tier {
		case TierFast, TierBalanced, TierFrontier:
		default:
			return fmt.Errorf("member %s: unknown tier %q", m.Key(), m.Tier)
		}
		if m.Quality < 0 || m.Quality > 1 {
			return fmt.Errorf("member %s: quality %.2f out of range", m.Key(), m.Quality)
		}
		if seen[m.Key()] {
			return fmt.Errorf("member %s listed twice", m.Key())
		}
		seen[m.Key()] = true
	}
	return nil
}

// MaxModelsFor returns how many panel members answer a query of the given
// complexity level. Zero means all.
func (c *PanelConfig) MaxModelsFor(level string) int {
	if c == nil || c.MaxModels == nil {
		return 0
	}
	return c.MaxModels[level]
}

func applyPanelDefaults(cfg *PanelConfig) {
	if cfg == nil {
		return
	}
	for i := range cfg.Members {
		if cfg.Members[i].Tier == "" {
			cfg.Members[i].Tier = TierBalanced
		}
	}
	if cfg.MaxModels == nil {
		cfg.MaxModels = map[string]int{
			"simple":   2,
			"moderate": 3,
			"complex":  4,
			"expert":   0,
		}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
	if cfg.Retry.BaseBackoffMs == 0 {
		cfg.Retry.BaseBackoffMs = 200
	}
	if cfg.Retry.MaxBackoffMs == 0 {
		cfg.Retry.MaxBackoffMs = 2000
	}
	if cfg.Retry.MaxBackoffMs < cfg.Retry.BaseBackoffMs {
		cfg.Retry.MaxBackoffMs = cfg.Retry.BaseBackoffMs
	}
}
