package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const clickUpBaseURL = "https://api.clickup.com"

// ClickUpClient looks up tasks via the ClickUp REST API using a personal
// token.
type ClickUpClient struct {
	token    string
	settings settings
}

// NewClickUpClient creates a ClickUp-backed ticket provider.
func NewClickUpClient(token string, opts ...Option) *ClickUpClient {
	return &ClickUpClient{
		token:    token,
		settings: newSettings(clickUpBaseURL, opts),
	}
}

type clickUpTask struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TextContent string `json:"text_content"`
	Description string `json:"description"`
	Status      struct {
		Status string `json:"status"`
	} `json:"status"`
	URL string `json:"url"`
}

// GetTicket fetches a ClickUp task. Unknown task IDs return (nil, nil).
func (c *ClickUpClient) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	url := fmt.Sprintf("%s/api/v2/task/%s", strings.TrimSuffix(c.settings.baseURL, "/"), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)

	resp, err := c.settings.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clickup request failed: %w", err)
	}
	defer resp.Body.Close()

	// ClickUp answers 404 for unknown IDs and 401 with an error payload for
	// IDs outside the token's workspaces; both mean "no such ticket" here.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("clickup API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var task clickUpTask
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode clickup response: %w", err)
	}

	description := task.Description
	if description == "" {
		description = task.TextContent
	}

	return &Ticket{
		ID:          task.ID,
		Title:       task.Name,
		Description: description,
		Status:      task.Status.Status,
		URL:         task.URL,
	}, nil
}
