// Package tickets resolves task-tracker tickets referenced by branch names.
// Providers normalize their service's payloads into the Ticket type so the
// prompt builder can treat every tracker alike.
package tickets

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Type identifies a project-management provider.
type Type string

const (
	TypeClickUp Type = "clickup"
	TypeJira    Type = "jira"
)

// DefaultTimeout bounds each ticket lookup request.
const DefaultTimeout = 30 * time.Second

// Ticket is a normalized view of a tracker ticket.
type Ticket struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Provider looks up tickets by ID.
type Provider interface {
	// GetTicket returns the ticket, or (nil, nil) when the ID does not
	// resolve to one. A missing ticket is an expected state: branches often
	// reference IDs from trackers the team no longer uses.
	GetTicket(ctx context.Context, id string) (*Ticket, error)
}

// Option configures a provider client.
type Option func(*settings)

// WithBaseURL overrides the service endpoint.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.httpClient = client }
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.timeout = timeout }
}

type settings struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func newSettings(defaultBaseURL string, opts []Option) settings {
	s := settings{
		baseURL: defaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.timeout}
	}
	return s
}

// Credentials authenticate against a tracker.
type Credentials struct {
	// APIKey is the personal token (ClickUp) or API token (Jira).
	APIKey string

	// Username is the account email for basic-auth providers (Jira).
	Username string
}

// New creates a provider client of the given type.
func New(t Type, creds Credentials, opts ...Option) (Provider, error) {
	switch t {
	case TypeClickUp:
		return NewClickUpClient(creds.APIKey, opts...), nil
	case TypeJira:
		return NewJiraClient(creds.Username, creds.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown ticket provider %q (supported: %s, %s)", t, TypeClickUp, TypeJira)
	}
}

// Branch-name patterns that reference tickets, tried in order. The ClickUp
// pattern goes first so "CU-8ab3k2" is not half-captured by the Jira pattern.
var ticketIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`CU-[A-Za-z0-9]+`),
	regexp.MustCompile(`[A-Z][A-Z0-9]+-\d+`),
	regexp.MustCompile(`(?i)Task-\d+`),
	regexp.MustCompile(`#(\d+)`),
}

// ExtractTicketID pulls the first ticket reference out of a branch name.
// Recognized forms: CU-abc123, PROJ-123, Task-123, #123. Returns an empty
// string when the branch references no ticket.
func ExtractTicketID(branch string) string {
	for _, pattern := range ticketIDPatterns {
		match := pattern.FindStringSubmatch(branch)
		if match == nil {
			continue
		}
		if len(match) > 1 {
			return match[1]
		}
		return match[0]
	}
	return ""
}

// FormatTicketID normalizes an extracted ID into the form the provider's API
// expects. ClickUp task IDs drop the "CU-" branch prefix.
func FormatTicketID(t Type, id string) string {
	if t == TypeClickUp {
		if rest, ok := strings.CutPrefix(id, "CU-"); ok {
			return rest
		}
	}
	return id
}
