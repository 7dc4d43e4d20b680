package git

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClient_CurrentBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("on a branch", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		client := NewClient(repoDir)

		branch, err := client.CurrentBranch(ctx)
		if err != nil {
			t.Fatalf("CurrentBranch failed: %v", err)
		}
		if branch != "main" {
			t.Errorf("expected branch main, got %q", branch)
		}
	})

	t.Run("detached HEAD", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		sha := writeAndCommit(t, repoDir, "a.txt", "a", "second commit")
		runGit(t, repoDir, "checkout", "--detach", sha)

		client := NewClient(repoDir)
		_, err := client.CurrentBranch(ctx)

		var detached *DetachedHeadError
		if !errors.As(err, &detached) {
			t.Fatalf("expected DetachedHeadError, got %v", err)
		}
		if detached.Dir != repoDir {
			t.Errorf("expected error to carry repo dir %s, got %s", repoDir, detached.Dir)
		}
	})

	t.Run("detached HEAD with CI ref fallback", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		runGit(t, repoDir, "checkout", "--detach", "HEAD")

		client := NewClientWithOptions(repoDir, &ClientOptions{
			CIEnvironment: true,
			CIRef:         "refs/heads/feature/ticket-123",
			Quiet:         true,
		})

		branch, err := client.CurrentBranch(ctx)
		if err != nil {
			t.Fatalf("CurrentBranch failed: %v", err)
		}
		if branch != "feature/ticket-123" {
			t.Errorf("expected branch feature/ticket-123, got %q", branch)
		}
	})

	t.Run("detached HEAD in CI without ref", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		runGit(t, repoDir, "checkout", "--detach", "HEAD")

		client := NewClientWithOptions(repoDir, &ClientOptions{CIEnvironment: true, Quiet: true})

		var detached *DetachedHeadError
		if _, err := client.CurrentBranch(ctx); !errors.As(err, &detached) {
			t.Fatalf("expected DetachedHeadError when CI ref is empty, got %v", err)
		}
	})
}

func TestClient_BranchHeadDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("existing branch", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		sha := writeAndCommit(t, repoDir, "a.txt", "a", "add feature file")

		client := NewClient(repoDir)
		detail, err := client.BranchHeadDetails(ctx, "main")
		if err != nil {
			t.Fatalf("BranchHeadDetails failed: %v", err)
		}

		if detail.Hash != sha {
			t.Errorf("expected hash %s, got %s", sha, detail.Hash)
		}
		if detail.ShortHash != sha[:7] {
			t.Errorf("expected short hash %s, got %s", sha[:7], detail.ShortHash)
		}
		if detail.Author.Name != "Test User" || detail.Author.Email != "test@example.com" {
			t.Errorf("unexpected author: %+v", detail.Author)
		}
		if detail.Subject() != "add feature file" {
			t.Errorf("expected subject %q, got %q", "add feature file", detail.Subject())
		}
		if detail.AuthoredAt.IsZero() || detail.CommittedAt.IsZero() {
			t.Error("expected timestamps to be populated")
		}
	})

	t.Run("empty branch means current", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		client := NewClient(repoDir)

		detail, err := client.BranchHeadDetails(ctx, "")
		if err != nil {
			t.Fatalf("BranchHeadDetails failed: %v", err)
		}
		if detail.Hash != runGit(t, repoDir, "rev-parse", "HEAD") {
			t.Error("expected current branch head")
		}
	})

	t.Run("missing branch lists available ones", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		runGit(t, repoDir, "branch", "develop")

		client := NewClient(repoDir)
		_, err := client.BranchHeadDetails(ctx, "no-such-branch")

		var notFound *BranchNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected BranchNotFoundError, got %v", err)
		}
		if notFound.Branch != "no-such-branch" {
			t.Errorf("expected error branch no-such-branch, got %q", notFound.Branch)
		}
		if len(notFound.Available) != 2 {
			t.Errorf("expected 2 available branches, got %v", notFound.Available)
		}
		if !strings.Contains(notFound.Error(), "develop") {
			t.Errorf("expected error message to list branches, got %q", notFound.Error())
		}
	})

	t.Run("snapshot is stable across later commits", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		client := NewClient(repoDir)

		before, err := client.BranchHeadDetails(ctx, "main")
		if err != nil {
			t.Fatalf("BranchHeadDetails failed: %v", err)
		}

		writeAndCommit(t, repoDir, "b.txt", "b", "later commit")

		if before.Subject() != "initial commit" {
			t.Errorf("expected earlier snapshot to be unchanged, got %q", before.Subject())
		}
	})
}

func TestClient_RemoteBranchHeadDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfigured remote", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		client := NewClient(repoDir)

		_, err := client.RemoteBranchHeadDetails(ctx, "main", "origin")

		var notFound *RemoteNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected RemoteNotFoundError, got %v", err)
		}
		if notFound.Remote != "origin" {
			t.Errorf("expected remote origin in error, got %q", notFound.Remote)
		}
	})

	t.Run("missing remote branch", func(t *testing.T) {
		workDir, _ := setupSyncedRepo(t)
		client := NewClient(workDir)

		_, err := client.RemoteBranchHeadDetails(ctx, "no-such-branch", "origin")

		var notFound *RemoteBranchNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected RemoteBranchNotFoundError, got %v", err)
		}
	})

	t.Run("fetches before resolving", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)

		// Advance the remote through another clone; the working repo has not
		// fetched yet.
		otherDir := cloneRepo(t, remoteDir)
		sha := writeAndCommit(t, otherDir, "other.txt", "x", "remote change")
		runGit(t, otherDir, "push", "origin", "main")

		client := NewClient(workDir)
		detail, err := client.RemoteBranchHeadDetails(ctx, "main", "origin")
		if err != nil {
			t.Fatalf("RemoteBranchHeadDetails failed: %v", err)
		}
		if detail.Hash != sha {
			t.Errorf("expected remote head %s, got %s", sha, detail.Hash)
		}
	})

	t.Run("empty remote defaults to origin", func(t *testing.T) {
		workDir, _ := setupSyncedRepo(t)
		client := NewClient(workDir)

		detail, err := client.RemoteBranchHeadDetails(ctx, "main", "")
		if err != nil {
			t.Fatalf("RemoteBranchHeadDetails failed: %v", err)
		}
		if detail.Hash == "" {
			t.Error("expected a resolved head commit")
		}
	})
}

func TestClient_IsBranchOutdated(t *testing.T) {
	ctx := context.Background()

	t.Run("branch behind remote base", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		runGit(t, workDir, "branch", "feature")

		otherDir := cloneRepo(t, remoteDir)
		writeAndCommit(t, otherDir, "base.txt", "x", "base moves ahead")
		runGit(t, otherDir, "push", "origin", "main")

		client := NewClient(workDir)
		if !client.IsBranchOutdated(ctx, "feature", "main", "origin") {
			t.Error("expected branch behind the base to be outdated")
		}
	})

	t.Run("branch contains the base", func(t *testing.T) {
		workDir, _ := setupSyncedRepo(t)
		runGit(t, workDir, "checkout", "-b", "feature")
		writeAndCommit(t, workDir, "feature.txt", "x", "feature work")

		client := NewClient(workDir)
		if client.IsBranchOutdated(ctx, "feature", "main", "origin") {
			t.Error("expected branch ahead of the base to not be outdated")
		}
	})

	t.Run("diverged branch", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		runGit(t, workDir, "checkout", "-b", "feature")
		writeAndCommit(t, workDir, "feature.txt", "x", "feature work")

		otherDir := cloneRepo(t, remoteDir)
		writeAndCommit(t, otherDir, "base.txt", "y", "base moves ahead")
		runGit(t, otherDir, "push", "origin", "main")

		client := NewClient(workDir)
		if client.IsBranchOutdated(ctx, "feature", "main", "origin") {
			t.Error("expected diverged branch to not be outdated")
		}
	})

	t.Run("fail-safe on missing branch", func(t *testing.T) {
		workDir, _ := setupSyncedRepo(t)
		client := NewClient(workDir)

		if !client.IsBranchOutdated(ctx, "no-such-branch", "main", "origin") {
			t.Error("expected missing branch to report outdated")
		}
	})

	t.Run("fail-safe on missing remote", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		client := NewClient(repoDir)

		if !client.IsBranchOutdated(ctx, "main", "main", "origin") {
			t.Error("expected unreachable remote to report outdated")
		}
	})
}

func TestClient_FetchAndMergeRemoteBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("already up to date returns false", func(t *testing.T) {
		workDir, _ := setupSyncedRepo(t)
		client := NewClient(workDir)

		merged, err := client.FetchAndMergeRemoteBranch(ctx, "main", "main", "origin")
		if err != nil {
			t.Fatalf("FetchAndMergeRemoteBranch failed: %v", err)
		}
		if merged {
			t.Error("expected no merge when local already contains the remote")
		}
	})

	t.Run("fast-forward", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)

		otherDir := cloneRepo(t, remoteDir)
		sha := writeAndCommit(t, otherDir, "other.txt", "x", "remote change")
		runGit(t, otherDir, "push", "origin", "main")

		client := NewClient(workDir)
		merged, err := client.FetchAndMergeRemoteBranch(ctx, "main", "main", "origin")
		if err != nil {
			t.Fatalf("FetchAndMergeRemoteBranch failed: %v", err)
		}
		if !merged {
			t.Error("expected a merge to run")
		}

		// Fast-forward: local tip now equals the remote tip, no merge commit.
		if got := runGit(t, workDir, "rev-parse", "HEAD"); got != sha {
			t.Errorf("expected HEAD at %s after fast-forward, got %s", sha, got)
		}
	})

	t.Run("three-way merge of diverged branches", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		localSHA := writeAndCommit(t, workDir, "local.txt", "local", "local change")

		otherDir := cloneRepo(t, remoteDir)
		remoteSHA := writeAndCommit(t, otherDir, "remote.txt", "remote", "remote change")
		runGit(t, otherDir, "push", "origin", "main")

		client := NewClient(workDir)
		merged, err := client.FetchAndMergeRemoteBranch(ctx, "main", "main", "origin")
		if err != nil {
			t.Fatalf("FetchAndMergeRemoteBranch failed: %v", err)
		}
		if !merged {
			t.Error("expected a merge to run")
		}

		// A true merge commit has both tips as parents.
		parents := strings.Fields(runGit(t, workDir, "rev-list", "--parents", "-1", "HEAD"))
		if len(parents) != 3 {
			t.Fatalf("expected a merge commit with two parents, got %v", parents)
		}
		got := map[string]bool{parents[1]: true, parents[2]: true}
		if !got[localSHA] || !got[remoteSHA] {
			t.Errorf("expected parents %s and %s, got %v", localSHA, remoteSHA, parents[1:])
		}
	})

	t.Run("checks out the branch when not current", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		runGit(t, workDir, "branch", "feature")
		runGit(t, workDir, "push", "origin", "feature")
		// Stay on main; the sync targets feature.

		otherDir := cloneRepo(t, remoteDir)
		runGit(t, otherDir, "checkout", "feature")
		writeAndCommit(t, otherDir, "f.txt", "x", "feature moves ahead")
		runGit(t, otherDir, "push", "origin", "feature")

		client := NewClient(workDir)
		merged, err := client.FetchAndMergeRemoteBranch(ctx, "feature", "feature", "origin")
		if err != nil {
			t.Fatalf("FetchAndMergeRemoteBranch failed: %v", err)
		}
		if !merged {
			t.Error("expected a merge to run")
		}
		if got := runGit(t, workDir, "rev-parse", "--abbrev-ref", "HEAD"); got != "feature" {
			t.Errorf("expected to end on feature, got %q", got)
		}
	})

	t.Run("conflict returns MergeConflictError and keeps the worktree mid-merge", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		writeAndCommit(t, workDir, "app.txt", "local version\n", "local edit")

		otherDir := cloneRepo(t, remoteDir)
		writeAndCommit(t, otherDir, "app.txt", "remote version\n", "remote edit")
		runGit(t, otherDir, "push", "origin", "main")

		client := NewClient(workDir)
		merged, err := client.FetchAndMergeRemoteBranch(ctx, "main", "main", "origin")

		var conflict *MergeConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected MergeConflictError, got %v", err)
		}
		if merged {
			t.Error("expected merged=false on conflict")
		}
		if conflict.Branch != "main" || conflict.RemoteRef != "origin/main" {
			t.Errorf("unexpected conflict details: %+v", conflict)
		}

		// The worktree must stay mid-merge: MERGE_HEAD present, conflict
		// markers in the file.
		status := runGit(t, workDir, "status", "--porcelain")
		if !strings.Contains(status, "UU app.txt") {
			t.Errorf("expected app.txt to be unmerged, status:\n%s", status)
		}
		runGit(t, workDir, "rev-parse", "MERGE_HEAD")
	})

	t.Run("missing remote branch", func(t *testing.T) {
		workDir, _ := setupSyncedRepo(t)
		client := NewClient(workDir)

		_, err := client.FetchAndMergeRemoteBranch(ctx, "main", "no-such-branch", "origin")

		var notFound *RemoteBranchNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected RemoteBranchNotFoundError, got %v", err)
		}
	})

	t.Run("custom conflict classifier", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		writeAndCommit(t, workDir, "app.txt", "local version\n", "local edit")

		otherDir := cloneRepo(t, remoteDir)
		writeAndCommit(t, otherDir, "app.txt", "remote version\n", "remote edit")
		runGit(t, otherDir, "push", "origin", "main")

		// A classifier that never sees a conflict turns the failure into a
		// plain merge error.
		client := NewClientWithOptions(workDir, &ClientOptions{
			Quiet:            true,
			ClassifyConflict: func(string) bool { return false },
		})

		_, err := client.FetchAndMergeRemoteBranch(ctx, "main", "main", "origin")
		if err == nil {
			t.Fatal("expected the merge to fail")
		}
		var conflict *MergeConflictError
		if errors.As(err, &conflict) {
			t.Error("expected the custom classifier to suppress MergeConflictError")
		}
	})
}

func TestClient_PushBranchToRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("push succeeds", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		sha := writeAndCommit(t, workDir, "a.txt", "a", "local work")

		client := NewClient(workDir)
		if err := client.PushBranchToRemote(ctx, "main", "origin", false); err != nil {
			t.Fatalf("PushBranchToRemote failed: %v", err)
		}

		if got := runGit(t, remoteDir, "rev-parse", "main"); got != sha {
			t.Errorf("expected remote main at %s, got %s", sha, got)
		}
	})

	t.Run("missing local branch", func(t *testing.T) {
		workDir, _ := setupSyncedRepo(t)
		client := NewClient(workDir)

		err := client.PushBranchToRemote(ctx, "no-such-branch", "origin", false)

		var notFound *BranchNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected BranchNotFoundError, got %v", err)
		}
	})

	t.Run("non-fast-forward rejection", func(t *testing.T) {
		workDir, remoteDir := setupSyncedRepo(t)
		writeAndCommit(t, workDir, "local.txt", "x", "local work")

		// The remote moves ahead independently.
		otherDir := cloneRepo(t, remoteDir)
		writeAndCommit(t, otherDir, "remote.txt", "y", "remote work")
		runGit(t, otherDir, "push", "origin", "main")

		client := NewClient(workDir)
		err := client.PushBranchToRemote(ctx, "main", "origin", false)

		var rejected *NonFastForwardError
		if !errors.As(err, &rejected) {
			t.Fatalf("expected NonFastForwardError, got %v", err)
		}
		if !strings.Contains(rejected.Error(), "fetch and merge") {
			t.Errorf("expected advice in error message, got %q", rejected.Error())
		}

		// Force push overrides the rejection.
		if err := client.PushBranchToRemote(ctx, "main", "origin", true); err != nil {
			t.Fatalf("force push failed: %v", err)
		}
		localSHA := runGit(t, workDir, "rev-parse", "main")
		if got := runGit(t, remoteDir, "rev-parse", "main"); got != localSHA {
			t.Errorf("expected remote main at %s after force push, got %s", localSHA, got)
		}
	})
}

func TestClient_BranchCommits(t *testing.T) {
	ctx := context.Background()

	t.Run("commits unique to the branch, newest first", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		runGit(t, repoDir, "checkout", "-b", "feature")
		first := writeAndCommit(t, repoDir, "a.txt", "a", "first feature commit")
		second := writeAndCommit(t, repoDir, "b.txt", "b", "second feature commit")

		client := NewClient(repoDir)
		commits, err := client.BranchCommits(ctx, "feature", "main")
		if err != nil {
			t.Fatalf("BranchCommits failed: %v", err)
		}

		if len(commits) != 2 {
			t.Fatalf("expected 2 commits, got %d", len(commits))
		}
		if commits[0].Hash != second || commits[1].Hash != first {
			t.Errorf("expected newest-first order [%s %s], got [%s %s]",
				second, first, commits[0].Hash, commits[1].Hash)
		}
		if commits[0].Subject() != "second feature commit" {
			t.Errorf("unexpected subject %q", commits[0].Subject())
		}
	})

	t.Run("no unique commits", func(t *testing.T) {
		repoDir := setupTestRepo(t)
		runGit(t, repoDir, "branch", "feature")

		client := NewClient(repoDir)
		commits, err := client.BranchCommits(ctx, "feature", "main")
		if err != nil {
			t.Fatalf("BranchCommits failed: %v", err)
		}
		if len(commits) != 0 {
			t.Errorf("expected no commits, got %d", len(commits))
		}
	})
}

// TestSyncWorkflow_FastForward walks the full happy path: a feature branch
// falls behind its remote counterpart, the sync detects it, merges, and the
// follow-up push succeeds.
func TestSyncWorkflow_FastForward(t *testing.T) {
	ctx := context.Background()

	workDir, remoteDir := setupSyncedRepo(t)
	runGit(t, workDir, "checkout", "-b", "feature")
	runGit(t, workDir, "push", "origin", "feature")

	otherDir := cloneRepo(t, remoteDir)
	runGit(t, otherDir, "checkout", "feature")
	remoteSHA := writeAndCommit(t, otherDir, "f.txt", "x", "teammate pushes to feature")
	runGit(t, otherDir, "push", "origin", "feature")

	client := NewClient(workDir)

	if !client.IsBranchOutdated(ctx, "feature", "feature", "origin") {
		t.Fatal("expected feature to be outdated")
	}

	merged, err := client.FetchAndMergeRemoteBranch(ctx, "feature", "feature", "origin")
	if err != nil {
		t.Fatalf("FetchAndMergeRemoteBranch failed: %v", err)
	}
	if !merged {
		t.Fatal("expected a merge to run")
	}

	if got := runGit(t, workDir, "rev-parse", "HEAD"); got != remoteSHA {
		t.Errorf("expected fast-forward to %s, got %s", remoteSHA, got)
	}

	if err := client.PushBranchToRemote(ctx, "feature", "origin", false); err != nil {
		t.Fatalf("push after sync failed: %v", err)
	}
}

// TestSyncWorkflow_Conflict walks the unhappy path: local and remote edit the
// same line, the sync surfaces a MergeConflictError, and nothing is pushed.
func TestSyncWorkflow_Conflict(t *testing.T) {
	ctx := context.Background()

	workDir, remoteDir := setupSyncedRepo(t)
	writeAndCommit(t, workDir, "shared.txt", "local take\n", "local edit")

	otherDir := cloneRepo(t, remoteDir)
	remoteSHA := writeAndCommit(t, otherDir, "shared.txt", "remote take\n", "remote edit")
	runGit(t, otherDir, "push", "origin", "main")

	client := NewClient(workDir)

	merged, err := client.FetchAndMergeRemoteBranch(ctx, "main", "main", "origin")
	if merged {
		t.Error("expected merged=false on conflict")
	}

	var conflict *MergeConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected MergeConflictError, got %v", err)
	}
	if conflict.Output == "" {
		t.Error("expected conflict output to be captured")
	}

	// The remote is untouched by the failed sync.
	if got := runGit(t, remoteDir, "rev-parse", "main"); got != remoteSHA {
		t.Errorf("expected remote main to stay at %s, got %s", remoteSHA, got)
	}
}
