package provider

import "context"

// Stream event types.
const (
	EventTextDelta = "text_delta"
	EventUsage     = "usage"
	EventStop      = "stop"
	EventError     = "error"
)

// LLMProvider defines the interface for interacting with an LLM provider.
type LLMProvider interface {
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
}

// CompletionRequest represents a single-turn request to an LLM.
type CompletionRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamEvent represents a single event in a streaming response.
type StreamEvent struct {
	Type         string
	Text         string
	Error        error
	InputTokens  int
	OutputTokens int
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}
