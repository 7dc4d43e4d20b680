// Package ai provides chat-completion clients for the language-model
// providers that draft pull-request titles and bodies. All providers expose
// the same Client interface; the orchestrator never sees provider specifics.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Type identifies a language-model provider.
type Type string

const (
	TypeOpenAI Type = "openai"
	TypeClaude Type = "claude"
	TypeGemini Type = "gemini"
)

// Generation defaults shared by all providers.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 800

	// DefaultTimeout bounds each completion request.
	DefaultTimeout = 30 * time.Second
)

// Client produces a completion for a prompt.
type Client interface {
	// GetContent sends the prompt with an optional system instruction and
	// returns the model's text response.
	GetContent(ctx context.Context, prompt, system string) (string, error)
}

// CompletionError describes a failed completion request: a non-2xx response
// or a well-formed response with no usable content.
type CompletionError struct {
	Provider Type

	// Status is the HTTP status code, or 0 when the response itself was
	// unusable (e.g. no choices returned).
	Status int

	Message string
}

func (e *CompletionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s completion failed (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s completion failed: %s", e.Provider, e.Message)
}

// Option configures a provider client.
type Option func(*settings)

// WithBaseURL overrides the provider endpoint (for tests and proxies).
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.httpClient = client }
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.timeout = timeout }
}

type settings struct {
	baseURL    string
	httpClient *http.Client
	model      string
	timeout    time.Duration
}

func newSettings(defaultBaseURL, defaultModel string, opts []Option) settings {
	s := settings{
		baseURL: defaultBaseURL,
		model:   defaultModel,
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

// New creates a client for the given provider type.
func New(t Type, apiKey string, opts ...Option) (Client, error) {
	switch t {
	case TypeOpenAI:
		return NewOpenAIClient(apiKey, opts...), nil
	case TypeClaude:
		return NewClaudeClient(apiKey, opts...), nil
	case TypeGemini:
		return NewGeminiClient(apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q (supported: %s, %s, %s)", t, TypeOpenAI, TypeClaude, TypeGemini)
	}
}
