package git

import (
	"fmt"
	"regexp"
	"strings"
)

// DetachedHeadError indicates HEAD does not point at a branch.
type DetachedHeadError struct {
	// Dir is the repository directory.
	Dir string
}

func (e *DetachedHeadError) Error() string {
	return fmt.Sprintf("repository %s is in detached HEAD state, no current branch", e.Dir)
}

// BranchNotFoundError indicates a named local branch does not exist.
type BranchNotFoundError struct {
	// Branch is the branch that was requested.
	Branch string

	// Available lists the local branches that do exist, to aid diagnosis.
	Available []string
}

func (e *BranchNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("branch %q not found (repository has no branches)", e.Branch)
	}
	return fmt.Sprintf("branch %q not found, available branches: %s", e.Branch, strings.Join(e.Available, ", "))
}

// RemoteNotFoundError indicates a named remote is not configured.
type RemoteNotFoundError struct {
	// Remote is the remote that was requested.
	Remote string

	// Available lists the remotes that are configured.
	Available []string
}

func (e *RemoteNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("remote %q not found (repository has no remotes)", e.Remote)
	}
	return fmt.Sprintf("remote %q not found, configured remotes: %s", e.Remote, strings.Join(e.Available, ", "))
}

// RemoteBranchNotFoundError indicates the remote-tracking ref for a branch is
// absent even after a fetch.
type RemoteBranchNotFoundError struct {
	Remote string
	Branch string
}

func (e *RemoteBranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %q not found on remote %q", e.Branch, e.Remote)
}

// MergeConflictError indicates a merge stopped on content conflicts. The
// working tree is left mid-merge with conflict markers in place so the
// operator can resolve or abort by hand.
type MergeConflictError struct {
	// Branch is the local branch that was being updated.
	Branch string

	// RemoteRef is the ref that was being merged in (e.g. "origin/main").
	RemoteRef string

	// Output is the combined git output describing the conflicts.
	Output string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge of %s into %s has conflicts, manual resolution required", e.RemoteRef, e.Branch)
}

// NonFastForwardError indicates a push was rejected because the remote has
// commits the local branch does not.
type NonFastForwardError struct {
	Branch string
	Remote string
}

func (e *NonFastForwardError) Error() string {
	return fmt.Sprintf(
		"push of %s to %s rejected (non-fast-forward): the remote has newer commits; "+
			"fetch and merge them first, or push with force to overwrite", e.Branch, e.Remote)
}

var conflictPattern = regexp.MustCompile(`(?i)CONFLICT|Automatic merge failed`)

// DefaultConflictClassifier reports whether merge output describes content
// conflicts. Matches git's "CONFLICT (content): ..." and
// "Automatic merge failed; fix conflicts..." messages, case-insensitively.
func DefaultConflictClassifier(output string) bool {
	return conflictPattern.MatchString(output)
}

var nonFastForwardPattern = regexp.MustCompile(`(?i)non-fast-forward|fetch first|\[rejected\]`)

// isNonFastForwardPush reports whether push output describes a rejected
// non-fast-forward update.
func isNonFastForwardPush(output string) bool {
	return nonFastForwardPattern.MatchString(output)
}
