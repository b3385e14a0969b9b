package llmHandlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestApplyOptions(t *testing.T) {
	o := applyOptions([]CallOption{WithTemperature(0), WithMaxTokens(10)})
	require.NotNil(t, o.Temperature)
	assert.Equal(t, float32(0), *o.Temperature)
	assert.Equal(t, 10, o.MaxTokens)

	empty := applyOptions(nil)
	assert.Nil(t, empty.Temperature)
	assert.Zero(t, empty.MaxTokens)
	assert.False(t, empty.NoThinking)
}

func TestGeminiConfigDisablesThinkingOnRequest(t *testing.T) {
	client := &GenaiGeminiClient{modelID: DefaultModel, MaxTokens: 32768}

	cfg := client.config("classify", []CallOption{WithMaxTokens(10), WithoutThinking()})
	assert.Equal(t, int32(10), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.ThinkingConfig)
	require.NotNil(t, cfg.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, int32(0), *cfg.ThinkingConfig.ThinkingBudget)
	require.NotNil(t, cfg.SystemInstruction)

	defaults := client.config("", nil)
	assert.Equal(t, int32(32768), defaults.MaxOutputTokens)
	assert.Nil(t, defaults.ThinkingConfig)
	assert.Nil(t, defaults.SystemInstruction)
}

func TestConvertMessagesToGenaiContentFoldsSystemMessages(t *testing.T) {
	system, contents := convertMessagesToGenaiContent("base", []Message{
		{Role: RoleSystem, Content: "extra"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})

	assert.Equal(t, "base\nextra", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}

func TestToLangChainMessages(t *testing.T) {
	msgs := toLangChainMessages("system", []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[2].Role)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderGemini})
	assert.Error(t, err)
}
