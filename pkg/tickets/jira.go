package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// JiraClient looks up issues via the Jira Cloud REST API using basic auth
// (account email + API token). The base URL must point at the site root,
// e.g. https://yourteam.atlassian.net.
type JiraClient struct {
	email    string
	token    string
	settings settings
}

// NewJiraClient creates a Jira-backed ticket provider.
func NewJiraClient(email, token string, opts ...Option) *JiraClient {
	return &JiraClient{
		email:    email,
		token:    token,
		settings: newSettings("", opts),
	}
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
	} `json:"fields"`
}

// GetTicket fetches a Jira issue. Unknown issue keys return (nil, nil).
func (c *JiraClient) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	base := strings.TrimSuffix(c.settings.baseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("jira base URL is required")
	}

	url := fmt.Sprintf("%s/rest/api/2/issue/%s", base, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.settings.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jira API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var issue jiraIssue
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return nil, fmt.Errorf("failed to decode jira response: %w", err)
	}

	return &Ticket{
		ID:          issue.Key,
		Title:       issue.Fields.Summary,
		Description: issue.Fields.Description,
		Status:      issue.Fields.Status.Name,
		URL:         base + "/browse/" + issue.Key,
	}, nil
}
