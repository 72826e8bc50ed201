package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	APIKeys     map[string]string
	Panel       *PanelConfig
	PanelPath   string
	ConfigDir   string
	LedgerPath  string
	HistoryPath string
	Autosave    bool
	Server      ServerConfig
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// TokenHash is a bcrypt hash of the bearer token. Empty disables auth.
	TokenHash string `yaml:"token_hash"`
}

// FileConfig represents the structure of ~/.multimind/config.yaml
type FileConfig struct {
	APIKeys        APIKeysConfig `yaml:"api_keys"`
	LedgerPath     string        `yaml:"ledger_path"`
	HistoryPath    string        `yaml:"history_path"`
	AutosaveLedger *bool         `yaml:"autosave_ledger"`
	Server         ServerConfig  `yaml:"server"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	OpenAI    string `yaml:"openai"`
	Anthropic string `yaml:"anthropic"`
	Google    string `yaml:"google"`
	Together  string `yaml:"together"`
	XAI       string `yaml:"xai"`
	DeepSeek  string `yaml:"deepseek"`
}

// apiKeyEnv maps adapter names to the environment variable holding the key.
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GOOGLE_API_KEY",
	"together":  "TOGETHER_API_KEY",
	"xai":       "XAI_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	return LoadWithPanelFile("")
}

// LoadWithPanelFile loads config with a specific panel file. An empty path
// uses panel.yaml in the config directory, or the defaults when absent.
func LoadWithPanelFile(panelPath string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))
	cfg := &Config{
		APIKeys:     resolveAPIKeys(fileConfig.APIKeys),
		ConfigDir:   configDir,
		LedgerPath:  orDefault(fileConfig.LedgerPath, filepath.Join(configDir, "ledger.json")),
		HistoryPath: orDefault(fileConfig.HistoryPath, filepath.Join(configDir, "history.db")),
		Autosave:    fileConfig.AutosaveLedger == nil || *fileConfig.AutosaveLedger,
		Server:      fileConfig.Server,
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8787"
	}
	if hash := os.Getenv("MULTIMIND_TOKEN_HASH"); hash != "" {
		cfg.Server.TokenHash = hash
	}

	explicit := panelPath != ""
	if !explicit {
		panelPath = filepath.Join(configDir, "panel.yaml")
	}
	cfg.PanelPath = panelPath

	if _, statErr := os.Stat(panelPath); statErr == nil || explicit {
		panel, err := LoadPanelConfig(panelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load panel config from %s: %w", panelPath, err)
		}
		cfg.Panel = panel
	} else {
		cfg.Panel = DefaultPanelConfig()
	}

	return cfg, nil
}

// APIKey returns the configured key for an adapter.
func (c *Config) APIKey(name string) string {
	if c == nil || c.APIKeys == nil {
		return ""
	}
	return c.APIKeys[name]
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	return c.APIKey(name) != ""
}

func resolveAPIKeys(file APIKeysConfig) map[string]string {
	fromFile := map[string]string{
		"openai":    file.OpenAI,
		"anthropic": file.Anthropic,
		"google":    file.Google,
		"together":  file.Together,
		"xai":       file.XAI,
		"deepseek":  file.DeepSeek,
	}
	keys := make(map[string]string, len(apiKeyEnv))
	for name, env := range apiKeyEnv {
		if key := getEnvOrDefault(env, fromFile[name]); key != "" {
			keys[name] = key
		}
	}
	return keys
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func getConfigDir() (string, error) {
	configDir := os.Getenv("MULTIMIND_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".multimind")
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
