package llmHandlers

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenaiGeminiClient implements Client for Gemini via Google AI API
type GenaiGeminiClient struct {
	client  *genai.Client
	modelID string

	MaxTokens int32
}

func NewGenaiGeminiClient(ctx context.Context, cfg Config) (*GenaiGeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	modelID := cfg.Model
	if modelID == "" {
		modelID = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &GenaiGeminiClient{
		client:    client,
		modelID:   modelID,
		MaxTokens: 32768,
	}, nil
}

func (v *GenaiGeminiClient) Model() string {
	return v.modelID
}

// convertMessagesToGenaiContent converts our Message format to genai.Content.
// System messages are folded into the system instruction.
func convertMessagesToGenaiContent(systemMessage string, messages []Message) (string, []*genai.Content) {
	systemParts := []string{}
	if systemMessage != "" {
		systemParts = append(systemParts, systemMessage)
	}
	contents := []*genai.Content{}

	for _, m := range messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}

		// Map role: "assistant" -> "model", "user" -> "user"
		roleOut := "user"
		if m.Role == RoleAssistant {
			roleOut = "model"
		}

		contents = append(contents, &genai.Content{
			Role:  roleOut,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	return strings.Join(systemParts, "\n"), contents
}

func (v *GenaiGeminiClient) config(systemText string, opts []CallOption) *genai.GenerateContentConfig {
	o := applyOptions(opts)
	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: v.MaxTokens,
		Temperature:     o.Temperature,
	}
	if o.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(o.MaxTokens)
	}
	if o.NoThinking {
		budget := int32(0)
		genConfig.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	if systemText != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemText}},
		}
	}
	return genConfig
}

func (v *GenaiGeminiClient) Chat(ctx context.Context, systemMessage string, messages []Message, opts ...CallOption) (string, error) {
	systemText, contents := convertMessagesToGenaiContent(systemMessage, messages)

	resp, err := v.client.Models.GenerateContent(ctx, v.modelID, contents, v.config(systemText, opts))
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return collectText(resp), nil
}

func (v *GenaiGeminiClient) ChatStream(ctx context.Context, systemMessage string, messages []Message, onChunk ChunkHandler, opts ...CallOption) (string, error) {
	systemText, contents := convertMessagesToGenaiContent(systemMessage, messages)

	var sb strings.Builder
	for resp, err := range v.client.Models.GenerateContentStream(ctx, v.modelID, contents, v.config(systemText, opts)) {
		if err != nil {
			return sb.String(), fmt.Errorf("gemini GenerateContentStream: %w", err)
		}
		chunk := collectText(resp)
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return sb.String(), err
			}
		}
	}

	return sb.String(), nil
}

// collectText concatenates the text parts of every candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}
