package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultClaudeBaseURL = "https://api.anthropic.com/v1/messages"

// claudeCompleter implements Completer for Anthropic Claude API.
type claudeCompleter struct {
	cfg completerConfig
}

// Claude request/response types
type claudeRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Error   *claudeError    `json:"error,omitempty"`
}

type claudeContent struct {
	Text string `json:"text"`
}

type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *claudeCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	url := defaultClaudeBaseURL
	if c.cfg.baseURL != "" {
		url = c.cfg.baseURL
	}

	// Claude handles the system prompt as a top-level field.
	var system string
	var chat []Message
	for _, msg := range messages {
		if msg.Role == "system" {
			system += msg.Content + "\n"
			continue
		}
		chat = append(chat, msg)
	}

	// max_tokens is required by the API.
	maxTokens := c.cfg.maxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	reqBody := claudeRequest{
		Model:       c.cfg.model,
		Messages:    chat,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.cfg.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if claudeResp.Error != nil {
		return "", fmt.Errorf("api error: %s - %s", claudeResp.Error.Type, claudeResp.Error.Message)
	}

	if len(claudeResp.Content) == 0 {
		return "", fmt.Errorf("no content returned")
	}

	return claudeResp.Content[0].Text, nil
}
