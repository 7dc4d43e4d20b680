// Package git wraps the system git binary to provide the branch operations the
// pull-request workflow needs: resolving branch heads, deciding whether a branch
// is behind its base, merging in remote changes, and pushing. Wrapping the CLI
// keeps behavior identical to what a developer sees in their terminal, and
// leaves room to migrate to go-git later without changing the consumer API.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultRemote is the remote name used when callers pass an empty remote.
const DefaultRemote = "origin"

// Client runs git commands against a single repository.
type Client struct {
	// Dir is the working directory of the git repository.
	Dir string

	// Options provides optional behavior overrides.
	Options *ClientOptions
}

// ConflictClassifier reports whether a failed merge's combined output indicates
// a content conflict (as opposed to some other failure, e.g. a dirty worktree).
type ConflictClassifier func(output string) bool

// ClientOptions holds configuration for git operations.
type ClientOptions struct {
	// CIEnvironment indicates the client runs inside a CI job where HEAD may
	// be detached. When set, CurrentBranch falls back to CIRef instead of
	// returning a DetachedHeadError.
	CIEnvironment bool

	// CIRef is the fully qualified ref the CI job checked out
	// (e.g. "refs/heads/feature/x"). Only consulted when CIEnvironment is set.
	CIRef string

	// ClassifyConflict overrides conflict detection on merge failures.
	// Nil means DefaultConflictClassifier.
	ClassifyConflict ConflictClassifier

	// Quiet suppresses output from git commands that support --quiet.
	Quiet bool
}

// DefaultClientOptions returns the default client options.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{Quiet: true}
}

// NewClient creates a git client for the repository at dir.
func NewClient(dir string) *Client {
	return &Client{Dir: dir, Options: DefaultClientOptions()}
}

// NewClientWithOptions creates a git client with explicit options.
func NewClientWithOptions(dir string, opts *ClientOptions) *Client {
	if opts == nil {
		opts = DefaultClientOptions()
	}
	return &Client{Dir: dir, Options: opts}
}

// execCommand executes a git command with proper error handling.
func (c *Client) execCommand(ctx context.Context, args ...string) ([]byte, error) {
	cmdArgs := []string{"-C", c.Dir}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}

	return output, nil
}

// ExecCommand is a safe wrapper to allow callers to run arbitrary git commands.
func (c *Client) ExecCommand(ctx context.Context, args ...string) ([]byte, error) {
	return c.execCommand(ctx, args...)
}

// quietFlag returns the --quiet flag if enabled.
func (c *Client) quietFlag() string {
	if c.Options != nil && c.Options.Quiet {
		return "--quiet"
	}
	return ""
}

// IsRepo checks if the directory is a git repository.
func (c *Client) IsRepo(ctx context.Context) bool {
	_, err := c.execCommand(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// revParse resolves a revision to its full SHA.
func (c *Client) revParse(ctx context.Context, rev string) (string, error) {
	output, err := c.execCommand(ctx, "rev-parse", "--verify", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// LocalBranches returns the names of all local branches.
func (c *Client) LocalBranches(ctx context.Context) ([]string, error) {
	output, err := c.execCommand(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var branches []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// Remotes returns the configured remote names.
func (c *Client) Remotes(ctx context.Context) ([]string, error) {
	output, err := c.execCommand(ctx, "remote")
	if err != nil {
		return nil, fmt.Errorf("failed to list git remotes: %w", err)
	}
	return strings.Fields(string(output)), nil
}

// HasRemote reports whether a remote with the given name is configured.
func (c *Client) HasRemote(ctx context.Context, name string) (bool, error) {
	remotes, err := c.Remotes(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range remotes {
		if r == name {
			return true, nil
		}
	}
	return false, nil
}

// SetRemote ensures that a remote with the given name points to the provided URL.
// If the remote already exists, its URL is updated. If it does not exist, the
// remote is created with the given URL.
func (c *Client) SetRemote(ctx context.Context, name, url string) error {
	exists, err := c.HasRemote(ctx, name)
	if err != nil {
		return err
	}

	if exists {
		if _, err := c.execCommand(ctx, "remote", "set-url", name, url); err != nil {
			return fmt.Errorf("failed to set remote %s to %s: %w", name, url, err)
		}
		return nil
	}

	if _, err := c.execCommand(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("failed to add remote %s with URL %s: %w", name, url, err)
	}
	return nil
}

// Fetch updates the remote-tracking refs for the given remote.
func (c *Client) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		remote = DefaultRemote
	}
	args := []string{"fetch"}
	if q := c.quietFlag(); q != "" {
		args = append(args, q)
	}
	args = append(args, remote)
	_, err := c.execCommand(ctx, args...)
	return err
}

// Checkout checks out a reference (branch, tag, or commit).
func (c *Client) Checkout(ctx context.Context, ref string) error {
	args := []string{"checkout"}
	if q := c.quietFlag(); q != "" {
		args = append(args, q)
	}
	args = append(args, ref)
	_, err := c.execCommand(ctx, args...)
	return err
}

// Init initializes a new git repository.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.execCommand(ctx, "init")
	return err
}

// SetConfig sets a git configuration value.
func (c *Client) SetConfig(ctx context.Context, key, value string) error {
	_, err := c.execCommand(ctx, "config", key, value)
	return err
}

// Add stages files for commit.
func (c *Client) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add"}, paths...)
	_, err := c.execCommand(ctx, args...)
	return err
}

// Commit creates a commit with the given message and returns its SHA.
func (c *Client) Commit(ctx context.Context, message string) (string, error) {
	if _, err := c.execCommand(ctx, "commit", "-m", message); err != nil {
		return "", fmt.Errorf("commit failed: %w", err)
	}
	return c.revParse(ctx, "HEAD")
}

// IsClean returns true if the working directory has no uncommitted changes
// and no untracked files.
func (c *Client) IsClean(ctx context.Context) bool {
	output, err := c.execCommand(ctx, "status", "--porcelain")
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) == 0
}

// mergeBase returns the best common ancestor of two revisions, or ok=false when
// the revisions share no history.
func (c *Client) mergeBase(ctx context.Context, a, b string) (sha string, ok bool, err error) {
	cmdArgs := []string{"-C", c.Dir, "merge-base", a, b}
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Exit status 1 with no output means no common ancestor.
		if exitErr, isExit := err.(*exec.ExitError); isExit && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("git merge-base %s %s failed: %w: %s", a, b, err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), true, nil
}
