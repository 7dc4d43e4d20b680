package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature identifies the person behind a commit action.
type Signature struct {
	Name  string
	Email string
}

// CommitDetail is a point-in-time snapshot of a single commit. Fields are
// copied out of git's output; mutating a CommitDetail never touches the
// repository.
type CommitDetail struct {
	// Hash is the full commit SHA.
	Hash string

	// ShortHash is the abbreviated SHA (7 characters).
	ShortHash string

	// Author wrote the change; Committer recorded it. They differ after
	// cherry-picks, rebases and applied patches.
	Author    Signature
	Committer Signature

	// Message is the full commit message, subject and body.
	Message string

	AuthoredAt  time.Time
	CommittedAt time.Time
}

// Subject returns the first line of the commit message.
func (d *CommitDetail) Subject() string {
	if i := strings.IndexByte(d.Message, '\n'); i >= 0 {
		return strings.TrimSpace(d.Message[:i])
	}
	return strings.TrimSpace(d.Message)
}

// commitFormat lays out one commit as NUL-separated fields terminated by a
// SOH byte, so messages containing newlines parse unambiguously.
const commitFormat = "%H%x00%h%x00%an%x00%ae%x00%cn%x00%ce%x00%at%x00%ct%x00%B%x01"

// parseCommitRecord decodes a single commitFormat record.
func parseCommitRecord(record string) (*CommitDetail, error) {
	fields := strings.Split(record, "\x00")
	if len(fields) != 9 {
		return nil, fmt.Errorf("malformed commit record: expected 9 fields, got %d", len(fields))
	}

	authoredAt, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed author timestamp %q: %w", fields[6], err)
	}
	committedAt, err := strconv.ParseInt(fields[7], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed committer timestamp %q: %w", fields[7], err)
	}

	return &CommitDetail{
		Hash:        fields[0],
		ShortHash:   fields[1],
		Author:      Signature{Name: fields[2], Email: fields[3]},
		Committer:   Signature{Name: fields[4], Email: fields[5]},
		Message:     strings.TrimRight(fields[8], "\n"),
		AuthoredAt:  time.Unix(authoredAt, 0).UTC(),
		CommittedAt: time.Unix(committedAt, 0).UTC(),
	}, nil
}

// commitDetail resolves a single revision into a CommitDetail snapshot.
func (c *Client) commitDetail(ctx context.Context, rev string) (*CommitDetail, error) {
	output, err := c.execCommand(ctx, "show", "--no-patch", "--format="+commitFormat, rev)
	if err != nil {
		return nil, err
	}

	record, _, found := strings.Cut(string(output), "\x01")
	if !found {
		return nil, fmt.Errorf("unexpected git show output for %s", rev)
	}
	return parseCommitRecord(record)
}

// CurrentBranch returns the name of the branch HEAD points at.
//
// On a detached HEAD it normally returns a *DetachedHeadError. When the client
// options mark a CI environment, the branch name is derived from the injected
// CI ref instead, since CI checkouts routinely detach HEAD at the tip of the
// branch under test.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	output, err := c.execCommand(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(string(output))
	if name != "HEAD" {
		return name, nil
	}

	if c.Options != nil && c.Options.CIEnvironment && c.Options.CIRef != "" {
		ref := c.Options.CIRef
		ref = strings.TrimPrefix(ref, "refs/heads/")
		ref = strings.TrimPrefix(ref, "heads/")
		return ref, nil
	}

	return "", &DetachedHeadError{Dir: c.Dir}
}

// BranchHeadDetails returns a snapshot of the head commit of a local branch.
// An empty branch name means the current branch. A missing branch yields a
// *BranchNotFoundError listing the branches that do exist.
func (c *Client) BranchHeadDetails(ctx context.Context, branch string) (*CommitDetail, error) {
	if branch == "" {
		current, err := c.CurrentBranch(ctx)
		if err != nil {
			return nil, err
		}
		branch = current
	}

	branches, err := c.LocalBranches(ctx)
	if err != nil {
		return nil, err
	}

	found := false
	for _, b := range branches {
		if b == branch {
			found = true
			break
		}
	}
	if !found {
		return nil, &BranchNotFoundError{Branch: branch, Available: branches}
	}

	return c.commitDetail(ctx, "refs/heads/"+branch)
}

// RemoteBranchHeadDetails fetches the remote and returns a snapshot of the head
// commit of the remote-tracking branch. An empty remote means DefaultRemote.
func (c *Client) RemoteBranchHeadDetails(ctx context.Context, branch, remote string) (*CommitDetail, error) {
	if remote == "" {
		remote = DefaultRemote
	}

	remotes, err := c.Remotes(ctx)
	if err != nil {
		return nil, err
	}
	configured := false
	for _, r := range remotes {
		if r == remote {
			configured = true
			break
		}
	}
	if !configured {
		return nil, &RemoteNotFoundError{Remote: remote, Available: remotes}
	}

	if err := c.Fetch(ctx, remote); err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("refs/remotes/%s/%s", remote, branch)
	if _, err := c.revParse(ctx, ref); err != nil {
		return nil, &RemoteBranchNotFoundError{Remote: remote, Branch: branch}
	}

	return c.commitDetail(ctx, ref)
}

// IsBranchOutdated reports whether branch is missing commits that the remote
// base branch has. The decision uses the merge-base of the two tips:
//
//	no common ancestor          -> outdated
//	merge-base == branch tip    -> outdated (base moved ahead)
//	merge-base == remote tip    -> up to date (branch contains the base)
//	diverged                    -> up to date (branch has its own commits)
//
// Any failure along the way also reports outdated: when the state of the
// branch cannot be determined, the safe answer is the one that triggers a
// sync rather than the one that skips it.
func (c *Client) IsBranchOutdated(ctx context.Context, branch, baseBranch, remote string) bool {
	if remote == "" {
		remote = DefaultRemote
	}
	if branch == "" {
		current, err := c.CurrentBranch(ctx)
		if err != nil {
			return true
		}
		branch = current
	}

	if err := c.Fetch(ctx, remote); err != nil {
		return true
	}

	localTip, err := c.revParse(ctx, "refs/heads/"+branch)
	if err != nil {
		return true
	}
	remoteTip, err := c.revParse(ctx, fmt.Sprintf("refs/remotes/%s/%s", remote, baseBranch))
	if err != nil {
		return true
	}

	base, ok, err := c.mergeBase(ctx, localTip, remoteTip)
	if err != nil || !ok {
		return true
	}

	switch base {
	case localTip:
		return true
	case remoteTip:
		return false
	default:
		return false
	}
}

// FetchAndMergeRemoteBranch brings the remote branch's commits into the local
// branch. This is a mutating operation: it checks out the branch if it is not
// already current, and it merges into the working tree.
//
// The return value reports whether anything changed: false means the branch
// already contained the remote's commits and no merge ran, so callers should
// skip any follow-up push. When the local tip is an ancestor of the remote tip
// a fast-forward is attempted first, falling back to a regular merge if git
// refuses; otherwise a regular merge runs directly.
//
// A merge that stops on content conflicts returns a *MergeConflictError. The
// working tree is deliberately left mid-merge so the conflicts stay visible
// for manual resolution. Merge failures that are not conflicts are returned
// unchanged.
func (c *Client) FetchAndMergeRemoteBranch(ctx context.Context, branch, remoteBranch, remote string) (bool, error) {
	if remote == "" {
		remote = DefaultRemote
	}
	if remoteBranch == "" {
		remoteBranch = branch
	}

	current, err := c.CurrentBranch(ctx)
	if err != nil {
		return false, err
	}
	if current != branch {
		if err := c.Checkout(ctx, branch); err != nil {
			return false, err
		}
	}

	if err := c.Fetch(ctx, remote); err != nil {
		return false, err
	}

	remoteRef := remote + "/" + remoteBranch
	remoteTip, err := c.revParse(ctx, "refs/remotes/"+remote+"/"+remoteBranch)
	if err != nil {
		return false, &RemoteBranchNotFoundError{Remote: remote, Branch: remoteBranch}
	}

	localTip, err := c.revParse(ctx, "HEAD")
	if err != nil {
		return false, err
	}

	base, ok, err := c.mergeBase(ctx, localTip, remoteTip)
	if err != nil {
		return false, err
	}

	if ok && base == remoteTip {
		// Local already contains everything on the remote.
		return false, nil
	}

	if ok && base == localTip {
		if _, ffErr := c.execCommand(ctx, "merge", "--ff-only", remoteRef); ffErr == nil {
			return true, nil
		}
		// git refused the fast-forward (e.g. the ref moved between the
		// rev-parse above and the merge). A regular merge still applies.
	}

	output, err := c.execCommand(ctx, "merge", remoteRef)
	if err != nil {
		if c.classifyConflict(string(output)) {
			// No merge --abort here: the half-merged tree with its conflict
			// markers is the evidence the operator needs.
			return false, &MergeConflictError{
				Branch:    branch,
				RemoteRef: remoteRef,
				Output:    strings.TrimSpace(string(output)),
			}
		}
		return false, err
	}

	return true, nil
}

func (c *Client) classifyConflict(output string) bool {
	if c.Options != nil && c.Options.ClassifyConflict != nil {
		return c.Options.ClassifyConflict(output)
	}
	return DefaultConflictClassifier(output)
}

// PushBranchToRemote pushes a local branch to the remote. A push rejected
// because the remote moved ahead returns a *NonFastForwardError; force
// overrides that at the cost of discarding the remote's commits.
func (c *Client) PushBranchToRemote(ctx context.Context, branch, remote string, force bool) error {
	if remote == "" {
		remote = DefaultRemote
	}

	branches, err := c.LocalBranches(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, b := range branches {
		if b == branch {
			found = true
			break
		}
	}
	if !found {
		return &BranchNotFoundError{Branch: branch, Available: branches}
	}

	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, branch)

	output, err := c.execCommand(ctx, args...)
	if err != nil {
		if !force && isNonFastForwardPush(string(output)) {
			return &NonFastForwardError{Branch: branch, Remote: remote}
		}
		return err
	}
	return nil
}

// BranchCommits returns the commits unique to branch relative to baseBranch,
// newest first. Both refs must resolve locally; fetch beforehand if the base
// only exists on the remote.
func (c *Client) BranchCommits(ctx context.Context, branch, baseBranch string) ([]CommitDetail, error) {
	output, err := c.execCommand(ctx, "log", "--format="+commitFormat, baseBranch+".."+branch)
	if err != nil {
		return nil, err
	}

	var commits []CommitDetail
	for _, record := range strings.Split(string(output), "\x01") {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		detail, err := parseCommitRecord(record)
		if err != nil {
			return nil, err
		}
		commits = append(commits, *detail)
	}
	return commits, nil
}
