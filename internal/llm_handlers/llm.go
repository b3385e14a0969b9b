package llmHandlers

import (
	"context"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole
	Content string
}

// ChunkHandler receives streamed text deltas. Returning an error aborts the stream.
type ChunkHandler func(chunk string) error

// Client is the LLM gateway used by the site generator.
type Client interface {
	Chat(ctx context.Context, systemMessage string, messages []Message, opts ...CallOption) (string, error)
	ChatStream(ctx context.Context, systemMessage string, messages []Message, onChunk ChunkHandler, opts ...CallOption) (string, error)
	// Model is the identifier recorded on persisted generations.
	Model() string
}

type CallOptions struct {
	Temperature *float32
	MaxTokens   int
	// NoThinking asks reasoning models to answer without a thinking phase,
	// which would otherwise consume the MaxTokens budget.
	NoThinking bool
}

type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature; 0 asks for deterministic decoding.
func WithTemperature(t float32) CallOption {
	return func(o *CallOptions) {
		o.Temperature = &t
	}
}

func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

func WithoutThinking() CallOption {
	return func(o *CallOptions) {
		o.NoThinking = true
	}
}

func applyOptions(opts []CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// UserPrompt is a convenience for the single-turn case.
func UserPrompt(text string) []Message {
	return []Message{{Role: RoleUser, Content: text}}
}
