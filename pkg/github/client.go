// Package github wraps the GitHub REST API for the pull-request workflow:
// looking up open pull requests for a branch, creating new ones, and applying
// labels. It builds on go-github with an oauth2 token transport.
package github

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the default GitHub API base URL
	DefaultBaseURL = "https://api.github.com"

	// TokenEnv is the environment variable for the GitHub token
	TokenEnv = "GITHUB_TOKEN"

	// FallbackTokenEnv is the alternative token variable the gh CLI uses
	FallbackTokenEnv = "GH_TOKEN"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second
)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the GitHub API (for tests and
// GitHub Enterprise installs)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets a custom HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client (e.g. a VCR recorder transport)
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// Client is an authenticated GitHub API client. The underlying go-github
// client is built lazily on first use so that options applied after
// construction still take effect.
type Client struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	githubClient *github.Client
}

// NewClient creates a new GitHub API client with the given token
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c
}

// GetToken returns the client's authentication token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken updates the client's authentication token
func (c *Client) SetToken(token string) {
	c.token = token
	// Invalidate cached github client
	c.githubClient = nil
}

// GitHubClient returns the underlying go-github client (lazy-loaded)
func (c *Client) GitHubClient() *github.Client {
	if c.githubClient == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token})
		tc := oauth2.NewClient(
			context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient),
			ts,
		)
		tc.Timeout = c.timeout
		c.githubClient = github.NewClient(tc)

		// Point go-github at a custom base URL when configured
		if c.baseURL != DefaultBaseURL && c.baseURL != "" {
			baseURL := c.baseURL
			if baseURL[len(baseURL)-1] != '/' {
				baseURL += "/"
			}
			if parsedURL, err := url.Parse(baseURL); err == nil {
				c.githubClient.BaseURL = parsedURL
			}
		}
	}
	return c.githubClient
}
