package github

import (
	"fmt"
	"strings"
	"time"
)

// PRInfo holds normalized pull request information
type PRInfo struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	State      string    `json:"state"`
	URL        string    `json:"url"`
	Repository string    `json:"repository"`
	BaseRef    string    `json:"base_ref"`
	HeadRef    string    `json:"head_ref"`
	BaseSHA    string    `json:"base_sha"`
	HeadSHA    string    `json:"head_sha"`
	Author     string    `json:"author"`
	Draft      bool      `json:"draft"`
	Labels     []string  `json:"labels,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewPullRequest describes a pull request to be created
type NewPullRequest struct {
	Title string
	Body  string

	// Head is the branch with the changes; Base is the branch to merge into.
	Head string
	Base string

	Draft               bool
	MaintainerCanModify bool
}

// LabelRule maps a changed-file pattern to a label. Patterns come in three
// forms: "*.ext" matches by file extension, "prefix*" matches by path prefix,
// and anything else matches the path exactly.
type LabelRule struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`
}

// Matches reports whether the rule applies to the given file path.
func (r LabelRule) Matches(path string) bool {
	switch {
	case strings.HasPrefix(r.Pattern, "*."):
		return strings.HasSuffix(path, r.Pattern[1:])
	case strings.HasSuffix(r.Pattern, "*"):
		return strings.HasPrefix(path, strings.TrimSuffix(r.Pattern, "*"))
	default:
		return path == r.Pattern
	}
}

// ParseRepo splits an "owner/name" repository reference.
func ParseRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", repo)
	}
	return owner, name, nil
}
