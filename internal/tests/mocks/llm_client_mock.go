package mocks

import (
	"context"

	llmHandlers "sitegen-backend/internal/llm_handlers"
)

type LLMClientMock struct {
	ChatFunc       func(ctx context.Context, systemMessage string, messages []llmHandlers.Message, opts ...llmHandlers.CallOption) (string, error)
	ChatStreamFunc func(ctx context.Context, systemMessage string, messages []llmHandlers.Message, onChunk llmHandlers.ChunkHandler, opts ...llmHandlers.CallOption) (string, error)
	ModelName      string
}

func (m *LLMClientMock) Chat(ctx context.Context, systemMessage string, messages []llmHandlers.Message, opts ...llmHandlers.CallOption) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, systemMessage, messages, opts...)
	}
	return "", nil
}

// ChatStream falls back to ChatFunc and emits the whole reply as one chunk.
func (m *LLMClientMock) ChatStream(ctx context.Context, systemMessage string, messages []llmHandlers.Message, onChunk llmHandlers.ChunkHandler, opts ...llmHandlers.CallOption) (string, error) {
	if m.ChatStreamFunc != nil {
		return m.ChatStreamFunc(ctx, systemMessage, messages, onChunk, opts...)
	}
	text, err := m.Chat(ctx, systemMessage, messages, opts...)
	if err != nil {
		return "", err
	}
	if onChunk != nil && text != "" {
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (m *LLMClientMock) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// StaticLLM always answers with reply.
func StaticLLM(reply string) *LLMClientMock {
	return &LLMClientMock{
		ChatFunc: func(ctx context.Context, systemMessage string, messages []llmHandlers.Message, opts ...llmHandlers.CallOption) (string, error) {
			return reply, nil
		},
	}
}
