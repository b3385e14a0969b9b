package helpers

import (
	"encoding/json"
	"strings"
	"unicode"
)

const (
	DefaultTitle   = "Website Project"
	titleWordLimit = 6
)

type chatPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Parts   []chatPart      `json:"parts"`
}

// TitleFromPrompt derives a conversation title from a stored prompt, which is
// either raw text or a JSON array of chat messages.
func TitleFromPrompt(prompt string) string {
	text := PromptText(prompt)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)

	words := strings.Fields(cleaned)
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}
	if len(words) == 0 {
		return DefaultTitle
	}
	return strings.Join(words, " ")
}

// PromptText returns the text of the first user message when prompt is a
// serialized message array, and prompt itself otherwise.
func PromptText(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	if !strings.HasPrefix(trimmed, "[") {
		return prompt
	}
	var messages []chatMessage
	if err := json.Unmarshal([]byte(trimmed), &messages); err != nil {
		return prompt
	}
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		var sb strings.Builder
		for _, p := range m.Parts {
			if p.Type == "" || p.Type == "text" {
				sb.WriteString(p.Text)
			}
		}
		var content string
		if len(m.Content) > 0 && json.Unmarshal(m.Content, &content) == nil {
			sb.WriteString(content)
		}
		var contentParts []chatPart
		if len(m.Content) > 0 && json.Unmarshal(m.Content, &contentParts) == nil {
			for _, p := range contentParts {
				if p.Type == "" || p.Type == "text" {
					sb.WriteString(p.Text)
				}
			}
		}
		return sb.String()
	}
	return ""
}
