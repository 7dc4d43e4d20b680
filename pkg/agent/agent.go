// Package agent orchestrates the pull-request creation workflow: it checks
// whether the branch needs syncing with its base, gathers commits and ticket
// details, asks the AI client for a title and description, and opens the PR.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pr-creator/pr-creator/pkg/ai"
	"github.com/pr-creator/pr-creator/pkg/git"
	"github.com/pr-creator/pr-creator/pkg/github"
	"github.com/pr-creator/pr-creator/pkg/log"
	"github.com/pr-creator/pr-creator/pkg/prompt"
	"github.com/pr-creator/pr-creator/pkg/tickets"
)

// System messages sent alongside the compiled prompts.
const (
	titleSystemMessage = "You are an assistant that writes concise pull request titles for software changes."
	bodySystemMessage  = "You are an assistant that writes clear pull request descriptions for software changes."
)

// Candidate locations for the repository's pull request template, checked in
// order.
var prTemplatePaths = []string{
	filepath.Join(".github", "PULL_REQUEST_TEMPLATE.md"),
	"PULL_REQUEST_TEMPLATE.md",
	filepath.Join("docs", "PULL_REQUEST_TEMPLATE.md"),
}

// GitSyncer is the slice of the git client the agent needs.
type GitSyncer interface {
	CurrentBranch(ctx context.Context) (string, error)
	IsBranchOutdated(ctx context.Context, branch, baseBranch, remote string) bool
	FetchAndMergeRemoteBranch(ctx context.Context, branch, remoteBranch, remote string) (bool, error)
	PushBranchToRemote(ctx context.Context, branch, remote string, force bool) error
	BranchCommits(ctx context.Context, branch, baseBranch string) ([]git.CommitDetail, error)
}

// PullRequester is the slice of the GitHub client the agent needs.
type PullRequester interface {
	GetPullRequestByBranch(ctx context.Context, owner, repo, branch string) (*github.PRInfo, error)
	CreatePullRequest(ctx context.Context, owner, repo string, newPR *github.NewPullRequest) (*github.PRInfo, error)
	AddLabelsToPullRequest(ctx context.Context, owner, repo string, prNumber int, rules []github.LabelRule) ([]string, error)
}

// Options configures an Agent. Git, GitHub, AI, and Compiler are required;
// Tickets is optional (nil disables ticket lookup).
type Options struct {
	Git      GitSyncer
	GitHub   PullRequester
	AI       ai.Client
	Tickets  tickets.Provider
	Compiler *prompt.Compiler

	// TicketType drives ticket ID normalization before lookup.
	TicketType tickets.Type

	// Owner and Repo identify the hosting repository.
	Owner string
	Repo  string

	// RepoPath is the local working copy, used to read the PR template.
	RepoPath string

	// Branch is the feature branch; empty means the currently checked-out
	// branch.
	Branch string

	// BaseBranch is the PR base, e.g. "main".
	BaseBranch string

	// Remote names the git remote, e.g. "origin".
	Remote string

	// Draft opens the PR as a draft.
	Draft bool

	// Labels are file-pattern rules applied to the created PR.
	Labels []github.LabelRule
}

// Agent runs the end-to-end PR creation workflow.
type Agent struct {
	opts Options
	log  *slog.Logger
}

// New creates an Agent. It validates that the required collaborators are set.
func New(opts Options) (*Agent, error) {
	if opts.Git == nil {
		return nil, fmt.Errorf("git client is required")
	}
	if opts.GitHub == nil {
		return nil, fmt.Errorf("github client is required")
	}
	if opts.AI == nil {
		return nil, fmt.Errorf("ai client is required")
	}
	if opts.Compiler == nil {
		return nil, fmt.Errorf("prompt compiler is required")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}
	if opts.BaseBranch == "" {
		opts.BaseBranch = "main"
	}
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemote
	}

	return &Agent{opts: opts, log: log.With("agent")}, nil
}

// Run executes the workflow and returns the created pull request.
//
// It returns (nil, nil) when no PR should be created: an open PR already
// exists for the branch, the branch has no commits beyond the base, or the
// sync with the base branch hit a merge conflict (logged, left for a human
// to resolve).
func (a *Agent) Run(ctx context.Context) (*github.PRInfo, error) {
	branch := a.opts.Branch
	if branch == "" {
		current, err := a.opts.Git.CurrentBranch(ctx)
		if err != nil {
			return nil, err
		}
		branch = current
	}

	a.log.Info("starting PR creation", "branch", branch, "base", a.opts.BaseBranch)

	outdated := a.opts.Git.IsBranchOutdated(ctx, branch, a.opts.BaseBranch, a.opts.Remote)

	existing, err := a.opts.GitHub.GetPullRequestByBranch(ctx, a.opts.Owner, a.opts.Repo, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing pull request: %w", err)
	}
	if existing != nil {
		a.log.Info("pull request already exists, skipping", "number", existing.Number, "url", existing.URL)
		return nil, nil
	}

	if outdated {
		if done, err := a.syncBranch(ctx, branch); !done {
			return nil, err
		}
	}

	commits, err := a.opts.Git.BranchCommits(ctx, branch, a.opts.BaseBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to list branch commits: %w", err)
	}
	if len(commits) == 0 {
		a.log.Info("branch has no commits beyond base, nothing to do", "branch", branch)
		return nil, nil
	}

	ticketDetails := a.resolveTickets(ctx, branch)

	prompts := a.opts.Compiler.Compile(prompt.Data{
		Tickets:             ticketDetails,
		Commits:             commits,
		PullRequestTemplate: a.loadPRTemplate(),
	})

	title, body := a.draftContent(ctx, branch, prompts, commits)

	pr, err := a.opts.GitHub.CreatePullRequest(ctx, a.opts.Owner, a.opts.Repo, &github.NewPullRequest{
		Title: title,
		Body:  body,
		Head:  branch,
		Base:  a.opts.BaseBranch,
		Draft: a.opts.Draft,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	a.log.Info("pull request created", "number", pr.Number, "url", pr.URL)

	if labels, err := a.opts.GitHub.AddLabelsToPullRequest(ctx, a.opts.Owner, a.opts.Repo, pr.Number, a.opts.Labels); err != nil {
		a.log.Warn("failed to apply labels", "error", err)
	} else if len(labels) > 0 {
		a.log.Info("labels applied", "labels", strings.Join(labels, ","))
	}

	return pr, nil
}

// syncBranch merges the remote base branch into the feature branch and
// pushes the result. Returns false when the workflow should stop: either a
// merge conflict (logged, nil error) or an unexpected failure (returned).
func (a *Agent) syncBranch(ctx context.Context, branch string) (bool, error) {
	a.log.Info("branch is behind base, updating", "branch", branch, "base", a.opts.BaseBranch)

	merged, err := a.opts.Git.FetchAndMergeRemoteBranch(ctx, branch, a.opts.BaseBranch, a.opts.Remote)
	if err != nil {
		var conflictErr *git.MergeConflictError
		if errors.As(err, &conflictErr) {
			a.log.Warn("merge conflict while updating branch, no PR created", "error", err)
			return false, nil
		}
		return false, err
	}

	if merged {
		if err := a.opts.Git.PushBranchToRemote(ctx, branch, a.opts.Remote, false); err != nil {
			return false, fmt.Errorf("failed to push updated branch: %w", err)
		}
	}

	return true, nil
}

// resolveTickets extracts a ticket reference from the branch name and looks
// it up. Lookup failures are logged and skipped, never fatal.
func (a *Agent) resolveTickets(ctx context.Context, branch string) []tickets.Ticket {
	if a.opts.Tickets == nil {
		return nil
	}

	id := tickets.ExtractTicketID(branch)
	if id == "" {
		a.log.Debug("no ticket reference in branch name", "branch", branch)
		return nil
	}

	ticket, err := a.opts.Tickets.GetTicket(ctx, tickets.FormatTicketID(a.opts.TicketType, id))
	if err != nil {
		a.log.Warn("ticket lookup failed, continuing without details", "ticket", id, "error", err)
		return nil
	}
	if ticket == nil {
		a.log.Debug("ticket not found", "ticket", id)
		return nil
	}

	return []tickets.Ticket{*ticket}
}

// loadPRTemplate reads the repository's pull request template, if present.
func (a *Agent) loadPRTemplate() string {
	if a.opts.RepoPath == "" {
		return ""
	}
	for _, rel := range prTemplatePaths {
		data, err := os.ReadFile(filepath.Join(a.opts.RepoPath, rel))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

// draftContent asks the AI client for a title and body. If either call
// fails, a plain fallback is used so a broken AI provider never blocks the
// PR.
func (a *Agent) draftContent(ctx context.Context, branch string, prompts prompt.Prompts, commits []git.CommitDetail) (title, body string) {
	rawTitle, err := a.opts.AI.GetContent(ctx, prompts.Title, titleSystemMessage)
	if err != nil {
		a.log.Warn("AI title generation failed, using fallback", "error", err)
		return fallbackTitle(branch), fallbackBody(commits)
	}

	rawBody, err := a.opts.AI.GetContent(ctx, prompts.Body, bodySystemMessage)
	if err != nil {
		a.log.Warn("AI description generation failed, using fallback", "error", err)
		return ParseTitleResponse(rawTitle), fallbackBody(commits)
	}

	return ParseTitleResponse(rawTitle), ParseBodyResponse(rawBody)
}

func fallbackTitle(branch string) string {
	return "Update " + branch
}

func fallbackBody(commits []git.CommitDetail) string {
	var sb strings.Builder
	sb.WriteString("## Changes\n\n")
	for _, commit := range commits {
		fmt.Fprintf(&sb, "- %s (%s)\n", commit.Subject(), commit.ShortHash)
	}
	return sb.String()
}
