package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julianshen/gavel/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTextResponse(t *testing.T) {
	ndjson := `{"model":"llama3","message":{"role":"assistant","content":"VERDICT:"},"done":false}
{"model":"llama3","message":{"role":"assistant","content":" INVALID"},"done":false}
{"model":"llama3","message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":40,"eval_count":7}
`
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(ndjson))
	}))
	defer server.Close()

	temp := 0.1
	p := New(server.URL)
	var _ provider.LLMProvider = p

	ch, err := p.Stream(context.Background(), provider.CompletionRequest{
		Model:       "llama3",
		System:      "sys",
		Messages:    []provider.Message{provider.NewUserMessage("verify")},
		MaxTokens:   2048,
		Temperature: &temp,
	})
	require.NoError(t, err)

	var text string
	var types []string
	for evt := range ch {
		types = append(types, evt.Type)
		switch evt.Type {
		case provider.EventTextDelta:
			text += evt.Text
		case provider.EventUsage:
			assert.Equal(t, 40, evt.InputTokens)
			assert.Equal(t, 7, evt.OutputTokens)
		}
	}
	assert.Equal(t, "VERDICT: INVALID", text)
	assert.Equal(t, []string{provider.EventTextDelta, provider.EventTextDelta, provider.EventUsage, provider.EventStop}, types)

	opts := body["options"].(map[string]any)
	assert.Equal(t, float64(2048), opts["num_predict"])
	assert.Equal(t, 0.1, opts["temperature"])
}

func TestStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Stream(context.Background(), provider.CompletionRequest{Model: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error 404")
}

func TestStreamErrorLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"error":"out of memory"}` + "\n"))
	}))
	defer server.Close()

	ch, err := New(server.URL).Stream(context.Background(), provider.CompletionRequest{Model: "m"})
	require.NoError(t, err)

	var events []provider.StreamEvent
	for evt := range ch {
		events = append(events, evt)
	}
	require.Len(t, events, 1)
	assert.EqualError(t, events[0].Error, "out of memory")
}
