package provider

// modelAliases maps the short model names accepted on the command line to
// provider-specific model ids.
var modelAliases = map[string]map[string]string{
	"anthropic": {
		"opus-4.5":   "claude-opus-4-20250514",
		"sonnet-4.5": "claude-sonnet-4-20250514",
	},
	"openrouter": {
		"opus-4.5":   "anthropic/claude-opus-4.5:beta",
		"sonnet-4.5": "anthropic/claude-sonnet-4.5:beta",
	},
}

// DefaultModel is used when no model is configured.
const DefaultModel = "opus-4.5"

// ResolveModel returns the model id to send to providerName. Unknown names
// are passed through as literal ids.
func ResolveModel(providerName, model string) string {
	if model == "" {
		model = DefaultModel
	}
	if id, ok := modelAliases[providerName][model]; ok {
		return id
	}
	return model
}
