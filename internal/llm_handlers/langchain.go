package llmHandlers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type LangChainClient struct {
	llm   llms.Model
	model string
}

type LangChainConfig struct {
	Model   string // e.g. "gpt-4.1", "llama-3.1-70b-versatile"
	BaseURL string // optional: for Groq or other OpenAI-compatible APIs
	APIKey  string // if not set, it'll fall back to env
}

func NewLangChainClient(cfg LangChainConfig) (*LangChainClient, error) {
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1"
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai client: %w", err)
	}

	return &LangChainClient{llm: llm, model: cfg.Model}, nil
}

func (c *LangChainClient) Model() string {
	return c.model
}

func (c *LangChainClient) Chat(ctx context.Context, systemMessage string, messages []Message, opts ...CallOption) (string, error) {
	return c.generate(ctx, systemMessage, messages, nil, opts)
}

func (c *LangChainClient) ChatStream(ctx context.Context, systemMessage string, messages []Message, onChunk ChunkHandler, opts ...CallOption) (string, error) {
	return c.generate(ctx, systemMessage, messages, onChunk, opts)
}

func (c *LangChainClient) generate(ctx context.Context, systemMessage string, messages []Message, onChunk ChunkHandler, opts []CallOption) (string, error) {
	msgContents := toLangChainMessages(systemMessage, messages)

	o := applyOptions(opts)
	callOpts := []llms.CallOption{}
	if o.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*o.Temperature)))
	}
	if o.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(o.MaxTokens))
	}
	if onChunk != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}))
	}

	resp, err := c.llm.GenerateContent(ctx, msgContents, callOpts...)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from LLM")
	}

	return resp.Choices[0].Content, nil
}

func toLangChainMessages(systemMessage string, messages []Message) []llms.MessageContent {
	msgContents := make([]llms.MessageContent, 0, len(messages)+1)
	if systemMessage != "" {
		msgContents = append(msgContents, llms.TextParts(llms.ChatMessageTypeSystem, systemMessage))
	}
	for _, m := range messages {
		var msgType llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		default:
			msgType = llms.ChatMessageTypeHuman
		}
		msgContents = append(msgContents, llms.TextParts(msgType, m.Content))
	}
	return msgContents
}
