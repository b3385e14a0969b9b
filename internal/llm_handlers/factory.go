package llmHandlers

import (
	"context"
	"fmt"
)

type Provider string

const (
	ProviderGemini          Provider = "gemini"
	ProviderOpenAI          Provider = "openai"
	ProviderGroq            Provider = "groq"
	ProviderVertexAnthropic Provider = "vertex_anthropic"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string // OpenAI-compatible endpoints such as Groq

	// Vertex
	ProjectID   string
	Location    string
	Credentials string // base64 encoded service account JSON
}

func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGenaiGeminiClient(ctx, cfg)
	case ProviderOpenAI, ProviderGroq:
		return NewLangChainClient(LangChainConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		})
	case ProviderVertexAnthropic:
		return NewVertexAnthropicClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %s", cfg.Provider)
	}
}
