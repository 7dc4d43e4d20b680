package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// convertFromGitHubPR converts a github.PullRequest to our PRInfo type
func convertFromGitHubPR(pr *github.PullRequest) *PRInfo {
	var baseRef, headRef, baseSHA, headSHA string

	if base := pr.GetBase(); base != nil {
		baseRef = base.GetRef()
		baseSHA = base.GetSHA()
	}
	if head := pr.GetHead(); head != nil {
		headRef = head.GetRef()
		headSHA = head.GetSHA()
	}

	author := ""
	if user := pr.GetUser(); user != nil {
		author = user.GetLogin()
	}

	info := &PRInfo{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		State:     pr.GetState(),
		URL:       pr.GetHTMLURL(),
		BaseRef:   baseRef,
		HeadRef:   headRef,
		BaseSHA:   baseSHA,
		HeadSHA:   headSHA,
		Author:    author,
		Draft:     pr.GetDraft(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}

	for _, label := range pr.Labels {
		info.Labels = append(info.Labels, label.GetName())
	}

	if pr.GetBase() != nil && pr.GetBase().GetRepo() != nil {
		info.Repository = pr.GetBase().GetRepo().GetFullName()
	}

	return info
}

// GetPullRequestByBranch returns the open pull request whose head is the given
// branch, or nil when no such pull request exists. A missing pull request is
// an expected state, not an error.
func (c *Client) GetPullRequestByBranch(ctx context.Context, owner, repo, branch string) (*PRInfo, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		Head:        fmt.Sprintf("%s:%s", owner, branch),
		ListOptions: github.ListOptions{PerPage: 100},
	}

	prs, _, err := c.GitHubClient().PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for branch %s: %w", branch, asAPIError(err))
	}

	for _, pr := range prs {
		if pr.GetHead().GetRef() == branch {
			return convertFromGitHubPR(pr), nil
		}
	}
	return nil, nil
}

// CreatePullRequest creates a new pull request
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, newPR *NewPullRequest) (*PRInfo, error) {
	pr, _, err := c.GitHubClient().PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title:               &newPR.Title,
		Head:                &newPR.Head,
		Base:                &newPR.Base,
		Body:                &newPR.Body,
		Draft:               github.Ptr(newPR.Draft),
		MaintainerCanModify: github.Ptr(newPR.MaintainerCanModify),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", asAPIError(err))
	}
	return convertFromGitHubPR(pr), nil
}

// UpdatePullRequest updates an existing pull request's title and body
func (c *Client) UpdatePullRequest(ctx context.Context, owner, repo string, prNumber int, title, body string) (*PRInfo, error) {
	pr, _, err := c.GitHubClient().PullRequests.Edit(ctx, owner, repo, prNumber, &github.PullRequest{
		Title: &title,
		Body:  &body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update pull request: %w", asAPIError(err))
	}
	return convertFromGitHubPR(pr), nil
}

// ListPullRequests lists pull requests in the given state with pagination
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string) ([]*PRInfo, error) {
	opts := &github.PullRequestListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allPRs []*PRInfo
	for {
		prs, resp, err := c.GitHubClient().PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", asAPIError(err))
		}

		for _, pr := range prs {
			allPRs = append(allPRs, convertFromGitHubPR(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allPRs, nil
}

// ListPullRequestFiles returns the paths of files changed by a pull request
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, prNumber int) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}

	var paths []string
	for {
		files, resp, err := c.GitHubClient().PullRequests.ListFiles(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull request files: %w", asAPIError(err))
		}

		for _, f := range files {
			paths = append(paths, f.GetFilename())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return paths, nil
}

// MatchLabels applies label rules to a set of changed file paths and returns
// the labels to add, deduplicated, in rule order.
func MatchLabels(rules []LabelRule, changedFiles []string) []string {
	var labels []string
	seen := make(map[string]bool)

	for _, rule := range rules {
		if seen[rule.Label] {
			continue
		}
		for _, path := range changedFiles {
			if rule.Matches(path) {
				labels = append(labels, rule.Label)
				seen[rule.Label] = true
				break
			}
		}
	}

	return labels
}

// AddLabelsToPullRequest inspects the pull request's changed files, applies
// the label rules, and adds any matching labels. Returns the labels added.
func (c *Client) AddLabelsToPullRequest(ctx context.Context, owner, repo string, prNumber int, rules []LabelRule) ([]string, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	files, err := c.ListPullRequestFiles(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, err
	}

	labels := MatchLabels(rules, files)
	if len(labels) == 0 {
		return nil, nil
	}

	// Pull requests are issues as far as the labels API is concerned.
	_, _, err = c.GitHubClient().Issues.AddLabelsToIssue(ctx, owner, repo, prNumber, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to add labels to pull request: %w", asAPIError(err))
	}

	return labels, nil
}
