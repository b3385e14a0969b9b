package llmHandlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultVertexClaudeModel = "claude-sonnet-4-5@20250929"

// VertexAnthropicClient talks to Claude models published on Vertex AI.
type VertexAnthropicClient struct {
	httpClient *http.Client
	projectID  string
	location   string
	modelID    string
	maxTokens  int
}

func NewVertexAnthropicClient(ctx context.Context, cfg Config) (*VertexAnthropicClient, error) {
	if cfg.Credentials == "" {
		return nil, fmt.Errorf("GCP_SERVICE_ACCOUNT_CREDENTIALS not set")
	}
	saJSON, err := base64.StdEncoding.DecodeString(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("decode sa json: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, saJSON, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("CredentialsFromJSON: %w", err)
	}

	modelID := cfg.Model
	if modelID == "" || strings.HasPrefix(modelID, "gemini") {
		modelID = defaultVertexClaudeModel
	}

	return &VertexAnthropicClient{
		httpClient: oauth2.NewClient(ctx, creds.TokenSource),
		projectID:  cfg.ProjectID,
		location:   cfg.Location,
		modelID:    modelID,
		maxTokens:  16384,
	}, nil
}

func (c *VertexAnthropicClient) Model() string {
	return c.modelID
}

type vertexStreamEvent struct {
	Type  string `json:"type"` // "content_block_delta", "message_stop", ...
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
}

func (c *VertexAnthropicClient) endpoint(method string) string {
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:%s",
		c.location, c.projectID, c.location, c.modelID, method,
	)
}

func (c *VertexAnthropicClient) newRequest(ctx context.Context, systemMessage string, messages []Message, stream bool, opts []CallOption) (*http.Request, error) {
	msgs := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			systemMessage = strings.TrimSpace(systemMessage + "\n" + m.Content)
			continue
		}
		msgs = append(msgs, map[string]interface{}{
			"role":    m.Role,
			"content": m.Content,
		})
	}

	o := applyOptions(opts)
	maxTokens := c.maxTokens
	if o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}
	body := map[string]interface{}{
		"anthropic_version": "vertex-2023-10-16",
		"messages":          msgs,
		"max_tokens":        maxTokens,
		"stream":            stream,
	}
	if systemMessage != "" {
		body["system"] = systemMessage
	}
	if o.Temperature != nil {
		body["temperature"] = *o.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	method := "rawPredict"
	if stream {
		method = "streamRawPredict"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (c *VertexAnthropicClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("vertex error %d: %s", resp.StatusCode, buf.String())
	}
	return resp, nil
}

func (c *VertexAnthropicClient) Chat(ctx context.Context, systemMessage string, messages []Message, opts ...CallOption) (string, error) {
	req, err := c.newRequest(ctx, systemMessage, messages, false, opts)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	texts := []string{}
	for _, block := range raw.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("vertex returned no text content")
	}
	return strings.Join(texts, "\n\n"), nil
}

func (c *VertexAnthropicClient) ChatStream(ctx context.Context, systemMessage string, messages []Message, onChunk ChunkHandler, opts ...CallOption) (string, error) {
	req, err := c.newRequest(ctx, systemMessage, messages, true, opts)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		// SSE lines look like: "data: { ... }"
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" || data == "" {
			break
		}

		var ev vertexStreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// a single malformed chunk is skipped
			continue
		}
		if ev.Type == "message_stop" {
			break
		}
		if ev.Type != "content_block_delta" || ev.Delta == nil || ev.Delta.Type != "text_delta" || ev.Delta.Text == "" {
			continue
		}

		accumulated.WriteString(ev.Delta.Text)
		if onChunk != nil {
			if err := onChunk(ev.Delta.Text); err != nil {
				return accumulated.String(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return accumulated.String(), fmt.Errorf("read stream: %w", err)
	}

	return accumulated.String(), nil
}
