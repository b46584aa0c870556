// Package ollama streams completions from a local Ollama server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/julianshen/gavel/internal/provider"
)

func init() {
	provider.RegisterProvider("ollama", func(baseURL, _ string, _ map[string]string) provider.LLMProvider {
		return New(baseURL)
	})
}

// Provider implements the LLMProvider interface for Ollama.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates a new Ollama provider.
func New(baseURL string) *Provider {
	return &Provider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

type apiRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  *apiOptions        `json:"options,omitempty"`
}

type apiOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// streamChunk is one line of the NDJSON response.
type streamChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Stream sends a chat request to /api/chat and returns a channel of
// StreamEvents parsed from the NDJSON response.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	body, err := buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	ch := make(chan provider.StreamEvent)
	go processStream(ctx, resp.Body, ch)

	return ch, nil
}

func buildRequestBody(req provider.CompletionRequest) ([]byte, error) {
	apiReq := apiRequest{Model: req.Model, Stream: true}
	if req.MaxTokens > 0 || req.Temperature != nil {
		apiReq.Options = &apiOptions{NumPredict: req.MaxTokens, Temperature: req.Temperature}
	}
	if req.System != "" {
		apiReq.Messages = append(apiReq.Messages, provider.Message{Role: "system", Content: req.System})
	}
	apiReq.Messages = append(apiReq.Messages, req.Messages...)
	return json.Marshal(apiReq)
}

func processStream(ctx context.Context, body io.ReadCloser, ch chan<- provider.StreamEvent) {
	defer close(ch)
	defer body.Close()

	send := func(evt provider.StreamEvent) bool {
		select {
		case ch <- evt:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			if !send(provider.StreamEvent{Type: provider.EventError, Error: fmt.Errorf("parsing chunk: %w", err)}) {
				return
			}
			continue
		}
		if chunk.Error != "" {
			send(provider.StreamEvent{Type: provider.EventError, Error: errors.New(chunk.Error)})
			return
		}
		if chunk.Message.Content != "" {
			if !send(provider.StreamEvent{Type: provider.EventTextDelta, Text: chunk.Message.Content}) {
				return
			}
		}
		if chunk.Done {
			if send(provider.StreamEvent{
				Type:         provider.EventUsage,
				InputTokens:  chunk.PromptEvalCount,
				OutputTokens: chunk.EvalCount,
			}) {
				send(provider.StreamEvent{Type: provider.EventStop})
			}
			return
		}
	}

	if err := scanner.Err(); err != nil {
		send(provider.StreamEvent{Type: provider.EventError, Error: err})
	}
}
