package provider

import (
	"fmt"
	"os"
	"strings"

	"github.com/julianshen/gavel/internal/config"
)

const (
	anthropicBaseURL  = "https://api.anthropic.com"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// ProviderConstructor is a function that creates a new LLMProvider.
type ProviderConstructor func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider

// registry holds registered provider constructors.
var registry = map[string]ProviderConstructor{}

// RegisterProvider registers a provider constructor by name.
func RegisterProvider(name string, constructor ProviderConstructor) {
	registry[name] = constructor
}

// Resolve returns the effective provider name for cfg. "auto" (or empty)
// prefers Anthropic when its key is in the environment.
func Resolve(cfg *config.Config) string {
	name := cfg.Provider.Default
	if name != "" && name != "auto" {
		return name
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return "anthropic"
	}
	return "openrouter"
}

// NewProvider creates an LLMProvider based on the given configuration.
// Names other than anthropic and ollama are looked up among the
// OpenAI-compatible configurations; openrouter works without one.
func NewProvider(cfg *config.Config) (LLMProvider, error) {
	switch name := Resolve(cfg); name {
	case "anthropic":
		return newAnthropicProvider(cfg)
	case "ollama":
		return newOllamaProvider(cfg)
	default:
		return newOpenAIProvider(cfg, name)
	}
}

func newAnthropicProvider(cfg *config.Config) (LLMProvider, error) {
	constructor, ok := registry["anthropic"]
	if !ok {
		return nil, fmt.Errorf("anthropic provider not registered")
	}

	apiKey, err := config.ResolveAPIKey(
		cfg.Provider.Anthropic.APIKeySource,
		cfg.Provider.Anthropic.APIKey,
		"ANTHROPIC_API_KEY",
	)
	if err != nil {
		return nil, fmt.Errorf("resolving Anthropic API key: %w", err)
	}

	return constructor(anthropicBaseURL, apiKey, nil), nil
}

func newOllamaProvider(cfg *config.Config) (LLMProvider, error) {
	constructor, ok := registry["ollama"]
	if !ok {
		return nil, fmt.Errorf("ollama provider not registered")
	}
	return constructor(cfg.Provider.Ollama.BaseURL, "", nil), nil
}

func newOpenAIProvider(cfg *config.Config, name string) (LLMProvider, error) {
	constructor, ok := registry["openai"]
	if !ok {
		return nil, fmt.Errorf("openai provider not registered")
	}

	oc, ok := openAICompatible(cfg, name)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", name)
	}

	envVar := strings.ToUpper(name) + "_API_KEY"
	apiKey, err := config.ResolveAPIKey(oc.APIKeySource, oc.APIKey, envVar)
	if err != nil {
		return nil, fmt.Errorf("resolving %s API key: %w", name, err)
	}

	return constructor(oc.BaseURL, apiKey, oc.ExtraHeaders), nil
}

func openAICompatible(cfg *config.Config, name string) (config.OpenAICompatibleConfig, bool) {
	for _, oc := range cfg.Provider.OpenAI {
		if oc.Name == name {
			return oc, true
		}
	}
	if name == "openrouter" {
		return config.OpenAICompatibleConfig{
			Name:         "openrouter",
			BaseURL:      openRouterBaseURL,
			APIKeySource: "env",
			ExtraHeaders: map[string]string{
				"HTTP-Referer": "https://github.com/julianshen/gavel",
				"X-Title":      "Gavel",
			},
		}, true
	}
	return config.OpenAICompatibleConfig{}, false
}
