package prompt

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pr-creator/pr-creator/pkg/git"
	"github.com/pr-creator/pr-creator/pkg/tickets"
)

const (
	titleAsset = "summarize-as-clear-title.prompt"
	bodyAsset  = "summarize-change-content.prompt"
)

// Template variables substituted into the assets. The `{{ name }}` token
// syntax is plain text substitution, not Go templating, so prompt authors
// can edit assets without knowing text/template.
const (
	varTickets    = "{{ task_tickets_details }}"
	varCommits    = "{{ all_commits }}"
	varPRTemplate = "{{ pull_request_template }}"
)

// Data is the input to prompt compilation.
type Data struct {
	// Tickets are the task tickets referenced by the branch, possibly empty.
	Tickets []tickets.Ticket

	// Commits are the branch's unique commits, newest first.
	Commits []git.CommitDetail

	// PullRequestTemplate is the repository's PR template contents, empty
	// when the repository has none.
	PullRequestTemplate string
}

// Prompts holds the compiled prompt pair for one pull request.
type Prompts struct {
	// Title asks the model for a one-line PR title.
	Title string

	// Body asks the model for the PR description.
	Body string
}

// Compiler renders prompt assets with run-specific data.
type Compiler struct {
	assets fs.FS
}

// NewCompiler creates a compiler over the embedded assets.
func NewCompiler() (*Compiler, error) {
	assets, err := AssetsFS()
	if err != nil {
		return nil, err
	}
	return &Compiler{assets: assets}, nil
}

// NewCompilerFromFS creates a compiler from a given FS (useful for testing
// or external prompt overrides).
func NewCompilerFromFS(assets fs.FS) *Compiler {
	return &Compiler{assets: assets}
}

// Compile renders the title and body prompts. If an asset cannot be read,
// a plain fallback prompt built from the same data is used instead, so a
// broken asset never blocks PR creation.
func (c *Compiler) Compile(data Data) Prompts {
	ticketsJSON := marshalTickets(data.Tickets)
	commitLines := formatCommits(data.Commits)

	replacer := strings.NewReplacer(
		varTickets, ticketsJSON,
		varCommits, commitLines,
		varPRTemplate, data.PullRequestTemplate,
	)

	prompts := Prompts{}

	if raw, err := fs.ReadFile(c.assets, titleAsset); err == nil {
		prompts.Title = replacer.Replace(string(raw))
	} else {
		prompts.Title = fallbackTitlePrompt(ticketsJSON, commitLines)
	}

	if raw, err := fs.ReadFile(c.assets, bodyAsset); err == nil {
		prompts.Body = replacer.Replace(string(raw))
	} else {
		prompts.Body = fallbackBodyPrompt(ticketsJSON, commitLines, data.PullRequestTemplate)
	}

	return prompts
}

// marshalTickets renders tickets as indented JSON for the prompt. An empty
// slice renders as "[]" so the model sees an explicit empty list.
func marshalTickets(ts []tickets.Ticket) string {
	if len(ts) == 0 {
		return "[]"
	}
	encoded, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

// formatCommits renders commits as "shorthash: subject" lines.
func formatCommits(commits []git.CommitDetail) string {
	if len(commits) == 0 {
		return "(no commits)"
	}
	var sb strings.Builder
	for _, commit := range commits {
		fmt.Fprintf(&sb, "%s: %s\n", commit.ShortHash, commit.Subject())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func fallbackTitlePrompt(ticketsJSON, commitLines string) string {
	return fmt.Sprintf(
		"Write a concise pull request title (max 72 characters, imperative mood, no quotes) for these changes.\n\nTickets:\n%s\n\nCommits:\n%s",
		ticketsJSON, commitLines)
}

func fallbackBodyPrompt(ticketsJSON, commitLines, prTemplate string) string {
	prompt := fmt.Sprintf(
		"Write a pull request description for these changes as a fenced markdown code block.\n\nTickets:\n%s\n\nCommits:\n%s",
		ticketsJSON, commitLines)
	if prTemplate != "" {
		prompt += "\n\nFill in this template:\n" + prTemplate
	}
	return prompt
}
