package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	claudeBaseURL      = "https://api.anthropic.com"
	claudeDefaultModel = "claude-3-5-sonnet-20241022"
	claudeAPIVersion   = "2023-06-01"
)

// ClaudeClient talks to the Anthropic messages API.
type ClaudeClient struct {
	apiKey   string
	settings settings
}

// NewClaudeClient creates a Claude-backed completion client.
func NewClaudeClient(apiKey string, opts ...Option) *ClaudeClient {
	return &ClaudeClient{
		apiKey:   apiKey,
		settings: newSettings(claudeBaseURL, claudeDefaultModel, opts),
	}
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GetContent sends a messages request and returns the first text block.
func (c *ClaudeClient) GetContent(ctx context.Context, prompt, system string) (string, error) {
	body, err := json.Marshal(claudeRequest{
		Model:       c.settings.model,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		System:      system,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimSuffix(c.settings.baseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.settings.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed claudeResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", &CompletionError{Provider: TypeClaude, Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", &CompletionError{Provider: TypeClaude, Message: "response contained no text content"}
}
