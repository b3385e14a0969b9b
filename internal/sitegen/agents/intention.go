package agents

import (
	"context"
	"log"
	"strings"
	"time"

	llmHandlers "sitegen-backend/internal/llm_handlers"
	"sitegen-backend/internal/sitegen/prompts"
)

type Intention string

const (
	IntentionGenerate Intention = "generate"
	IntentionDeploy   Intention = "deploy"
	IntentionBoth     Intention = "both"
	IntentionDownload Intention = "download"
	IntentionEdit     Intention = "edit"
)

var validIntentions = map[Intention]struct{}{
	IntentionGenerate: {},
	IntentionDeploy:   {},
	IntentionBoth:     {},
	IntentionDownload: {},
	IntentionEdit:     {},
}

// ParseIntention validates raw model output against the closed action set.
func ParseIntention(raw string) (Intention, bool) {
	candidate := Intention(strings.ToLower(strings.TrimSpace(raw)))
	candidate = Intention(strings.Trim(string(candidate), "\"'`.,!"))
	_, ok := validIntentions[candidate]
	return candidate, ok
}

// IntentionClassifier maps a free-text message to an action. It is a
// best-effort heuristic: any failure yields IntentionGenerate.
type IntentionClassifier struct {
	llmClient llmHandlers.Client
	timeout   time.Duration
}

func NewIntentionClassifier(llmClient llmHandlers.Client, timeout time.Duration) *IntentionClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IntentionClassifier{llmClient: llmClient, timeout: timeout}
}

func (c *IntentionClassifier) Classify(ctx context.Context, message string) Intention {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.llmClient.Chat(ctx, prompts.CLASSIFY_PROMPT, llmHandlers.UserPrompt(message),
		llmHandlers.WithTemperature(0),
		llmHandlers.WithMaxTokens(10),
		llmHandlers.WithoutThinking(),
	)
	if err != nil {
		log.Printf("[classifier] falling back to generate: %v", err)
		return IntentionGenerate
	}

	intention, ok := ParseIntention(raw)
	if !ok {
		log.Printf("[classifier] unrecognized intention %q, falling back to generate", raw)
		return IntentionGenerate
	}
	return intention
}
