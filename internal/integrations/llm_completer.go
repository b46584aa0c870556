package integrations

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/julianshen/gavel/internal/logging"
	"github.com/julianshen/gavel/internal/provider"
)

// DefaultTemperature keeps verdicts close to deterministic.
const DefaultTemperature = 0.1

// LLMCompleter wraps an LLMProvider to collect streamed text into a single string.
type LLMCompleter struct {
	provider    provider.LLMProvider
	model       string
	temperature float64
	log         *zap.SugaredLogger
}

// NewLLMCompleter creates a new LLMCompleter for model.
func NewLLMCompleter(p provider.LLMProvider, model string, log *zap.SugaredLogger) *LLMCompleter {
	return &LLMCompleter{
		provider:    p,
		model:       model,
		temperature: DefaultTemperature,
		log:         logging.OrNop(log),
	}
}

// Model returns the model id requests are sent to.
func (c *LLMCompleter) Model() string { return c.model }

// Complete sends one system and user prompt pair and returns the full
// response text.
func (c *LLMCompleter) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	temp := c.temperature
	req := provider.CompletionRequest{
		Model:       c.model,
		System:      system,
		Messages:    []provider.Message{provider.NewUserMessage(prompt)},
		MaxTokens:   maxTokens,
		Temperature: &temp,
	}

	c.log.Debugw("sending completion request", "model", c.model, "prompt_chars", len(system)+len(prompt))
	ch, err := c.provider.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	var b strings.Builder
	var in, out int
	var streamErr error
	// Keep reading after an error so the provider goroutine can exit.
	for evt := range ch {
		switch evt.Type {
		case provider.EventTextDelta:
			b.WriteString(evt.Text)
		case provider.EventUsage:
			in += evt.InputTokens
			out += evt.OutputTokens
		case provider.EventError:
			if streamErr == nil {
				streamErr = evt.Error
			}
		}
	}
	if streamErr != nil {
		return "", fmt.Errorf("llm stream error: %w", streamErr)
	}

	c.log.Debugw("received completion", "chars", b.Len(), "input_tokens", in, "output_tokens", out)
	return b.String(), nil
}
