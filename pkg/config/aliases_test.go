package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	aliases := &ModelAliases{
		Aliases: map[string]string{
			"fast":   "gpt-4o-mini",
			"sonnet": "claude-sonnet-4-20250514",
		},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "resolve known alias", input: "fast", expected: "gpt-4o-mini"},
		{name: "resolve another alias", input: "sonnet", expected: "claude-sonnet-4-20250514"},
		{name: "unknown alias returns input unchanged", input: "unknown-model", expected: "unknown-model"},
		{name: "canonical model returns unchanged", input: "gpt-4o-mini", expected: "gpt-4o-mini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := aliases.Resolve(tt.input)
			if result != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestResolve_NilAliases(t *testing.T) {
	var aliases *ModelAliases
	if result := aliases.Resolve("fast"); result != "fast" {
		t.Errorf("Resolve on nil should return input, got %q", result)
	}
}

func TestValidateModel(t *testing.T) {
	aliases := &ModelAliases{
		Providers: map[string][]string{
			"openai": {"gpt-4o", "gpt-4o-mini"},
			"xai":    {"grok-3"},
		},
	}

	tests := []struct {
		name      string
		adapter   string
		model     string
		wantError bool
	}{
		{name: "valid model for provider", adapter: "openai", model: "gpt-4o"},
		{name: "another valid model", adapter: "xai", model: "grok-3"},
		{name: "invalid model for provider", adapter: "openai", model: "grok-3", wantError: true},
		{name: "unknown adapter", adapter: "unknown", model: "some-model", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := aliases.ValidateModel(tt.adapter, tt.model)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateModel(%q, %q) error = %v, wantError %v",
					tt.adapter, tt.model, err, tt.wantError)
			}
		})
	}
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "models.yaml")

	content := `aliases:
  fast: gpt-4o-mini
providers:
  openai:
    - gpt-4o-mini
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	aliases, err := LoadAliases(configPath)
	if err != nil {
		t.Fatalf("LoadAliases() error = %v", err)
	}
	if aliases.Resolve("fast") != "gpt-4o-mini" {
		t.Error("alias 'fast' should resolve to 'gpt-4o-mini'")
	}
	if aliases.GetProviderForModel("gpt-4o-mini") != "openai" {
		t.Error("gpt-4o-mini should be in openai provider")
	}
}

func TestLoadAliasesWithFallback(t *testing.T) {
	dir := t.TempDir()
	content := "aliases:\n  test-alias: test-model\n"
	if err := os.WriteFile(filepath.Join(dir, "models.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	aliases, err := LoadAliasesWithFallback(dir)
	if err != nil {
		t.Fatalf("LoadAliasesWithFallback() error = %v", err)
	}
	if aliases.Resolve("test-alias") != "test-model" {
		t.Error("config dir models.yaml should be loaded")
	}
}

func TestLoadAliasesWithFallback_NoFile(t *testing.T) {
	aliases, err := LoadAliasesWithFallback(t.TempDir())
	if err != nil {
		t.Fatalf("LoadAliasesWithFallback() should not error, got %v", err)
	}
	if aliases.Resolve("grok") != "grok-3" {
		t.Error("missing models.yaml should fall back to default aliases")
	}
}

func TestValidatePanelConfig(t *testing.T) {
	aliases := &ModelAliases{
		Aliases:   map[string]string{"fast": "gpt-4o-mini"},
		Providers: map[string][]string{"openai": {"gpt-4o-mini"}},
	}

	valid := &PanelConfig{Members: []Member{{Adapter: "openai", Model: "fast"}}}
	if errs := aliases.ValidatePanelConfig(valid); len(errs) != 0 {
		t.Errorf("expected no errors for valid config, got %v", errs)
	}

	invalid := &PanelConfig{Members: []Member{
		{Adapter: "openai", Model: "nonexistent-model"},
		{Adapter: "openai", Model: "gpt-4o-mini"},
	}}
	if errs := aliases.ValidatePanelConfig(invalid); len(errs) != 1 {
		t.Errorf("expected 1 error for invalid config, got %d", len(errs))
	}
}

func TestResolvePanel(t *testing.T) {
	panel := &PanelConfig{Members: []Member{{Adapter: "xai", Model: "grok", Tier: TierFrontier}}}
	resolved := DefaultAliases().ResolvePanel(panel)

	if resolved.Members[0].Model != "grok-3" {
		t.Errorf("expected grok alias resolved, got %q", resolved.Members[0].Model)
	}
	if panel.Members[0].Model != "grok" {
		t.Error("ResolvePanel must not mutate its input")
	}
}

func TestDefaultAliasesCoverDefaultPanel(t *testing.T) {
	if errs := DefaultAliases().ValidatePanelConfig(DefaultPanelConfig()); len(errs) != 0 {
		t.Errorf("default panel should validate against default aliases: %v", errs)
	}
}
