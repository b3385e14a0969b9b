package v1

import (
	"testing"

	"sitegen-backend/internal/config"
	llmHandlers "sitegen-backend/internal/llm_handlers"

	"github.com/stretchr/testify/assert"
)

func TestLLMConfigPicksProviderCredential(t *testing.T) {
	settings := config.Settings{
		LLMProvider:  "groq",
		GeminiAPIKey: "gemini-key",
		OpenAIAPIKey: "openai-key",
		GroqAPIKey:   "groq-key",
		GroqBaseURL:  "https://api.groq.com/openai/v1",
	}
	cfg := LLMConfig(settings)
	assert.Equal(t, "groq-key", cfg.APIKey)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.BaseURL)

	settings.LLMProvider = "openai"
	assert.Equal(t, "openai-key", LLMConfig(settings).APIKey)

	settings.LLMProvider = "gemini"
	cfg = LLMConfig(settings)
	assert.Equal(t, "gemini-key", cfg.APIKey)
	assert.Equal(t, llmHandlers.Provider("gemini"), cfg.Provider)
}

func TestCloseWithoutSnapshotArchive(t *testing.T) {
	assert.NoError(t, (&Services{}).Close())
}
