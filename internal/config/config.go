package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Repo     RepoConfig     `toml:"repo"`
	History  HistoryConfig  `toml:"history"`
	Batch    BatchConfig    `toml:"batch"`
	Guard    GuardConfig    `toml:"guard"`
}

// ProviderConfig holds settings for AI provider selection and configuration.
type ProviderConfig struct {
	// Default names the provider; "auto" picks anthropic when
	// ANTHROPIC_API_KEY is set and openrouter otherwise.
	Default   string                   `toml:"default"`
	Model     string                   `toml:"model"`
	Anthropic AnthropicProviderConfig  `toml:"anthropic"`
	OpenAI    []OpenAICompatibleConfig `toml:"openai_compatible"`
	Ollama    OllamaProviderConfig     `toml:"ollama"`
}

// AnthropicProviderConfig holds Anthropic-specific provider settings.
type AnthropicProviderConfig struct {
	APIKeySource string `toml:"api_key_source"`
	APIKey       string `toml:"api_key"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider
// such as OpenRouter.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name"`
	BaseURL      string            `toml:"base_url"`
	APIKeySource string            `toml:"api_key_source"`
	APIKey       string            `toml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// OllamaProviderConfig points at a local Ollama server.
type OllamaProviderConfig struct {
	BaseURL string `toml:"base_url"`
}

// PipelineConfig bounds every stage of a single verification.
type PipelineConfig struct {
	MaxInputLength int   `toml:"max_input_length"`
	MaxPromptChars int   `toml:"max_prompt_chars"`
	MaxFiles       int   `toml:"max_files"`
	MaxLines       int   `toml:"max_lines"`
	MaxFileBytes   int64 `toml:"max_file_bytes"`
	Aggressive     bool  `toml:"aggressive"`
}

// RepoConfig controls where remote codebases are cloned.
type RepoConfig struct {
	CacheDir     string   `toml:"cache_dir"`
	CloneTimeout Duration `toml:"clone_timeout"`
}

// HistoryConfig controls the local verification history database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// BatchConfig paces model calls during batch runs. Zero disables pacing.
type BatchConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// GuardConfig points at an optional YAML file that extends the
// injection catalogs.
type GuardConfig struct {
	CatalogFile string `toml:"catalog_file"`
}

// Duration is a time.Duration that decodes from TOML strings like "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Default: "auto",
			Model:   "opus-4.5",
			Anthropic: AnthropicProviderConfig{
				APIKeySource: "env",
			},
			Ollama: OllamaProviderConfig{
				BaseURL: "http://localhost:11434",
			},
		},
		Pipeline: PipelineConfig{
			MaxInputLength: 500000,
			MaxPromptChars: 200000,
			MaxFiles:       10,
			MaxLines:       500,
			MaxFileBytes:   1 << 20,
			Aggressive:     true,
		},
		Repo: RepoConfig{
			CloneTimeout: Duration{5 * time.Minute},
		},
		Batch: BatchConfig{
			RequestsPerMinute: 0,
		},
	}
}

// Load reads a TOML config file at path on top of DefaultConfig. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
