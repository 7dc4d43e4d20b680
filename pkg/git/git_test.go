package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// runGit runs a git command in dir and fails the test on error.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v, output: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out))
}

// writeAndCommit writes a file, commits it, and returns the commit SHA.
func writeAndCommit(t *testing.T, dir, name, content, message string) string {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", message)
	return runGit(t, dir, "rev-parse", "HEAD")
}

// setupTestRepo creates a temporary git repository with one commit on main.
// Note: Uses t.TempDir() for automatic cleanup, so no explicit cleanup is needed.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "user.email", "test@example.com")
	writeAndCommit(t, dir, "README.md", "test readme", "initial commit")
	return dir
}

// setupRemoteRepo creates a bare repository for testing fetch/push operations.
func setupRemoteRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "init", "--bare", "-b", "main")
	return dir
}

// setupSyncedRepo creates a working repository whose main branch is pushed to
// a fresh bare remote named origin. Returns (workingDir, remoteDir).
func setupSyncedRepo(t *testing.T) (string, string) {
	t.Helper()

	remote := setupRemoteRepo(t)
	work := setupTestRepo(t)
	runGit(t, work, "remote", "add", "origin", remote)
	runGit(t, work, "push", "-u", "origin", "main")
	return work, remote
}

// cloneRepo clones the given remote into a fresh directory with test identity.
func cloneRepo(t *testing.T, remote string) string {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "clone", remote, ".")
	runGit(t, dir, "config", "user.name", "Other User")
	runGit(t, dir, "config", "user.email", "other@example.com")
	return dir
}

func TestClient_IsRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("valid git repository", func(t *testing.T) {
		client := NewClient(setupTestRepo(t))
		if !client.IsRepo(ctx) {
			t.Error("expected directory to be a git repository")
		}
	})

	t.Run("non-git directory", func(t *testing.T) {
		client := NewClient(t.TempDir())
		if client.IsRepo(ctx) {
			t.Error("expected directory to not be a git repository")
		}
	})
}

func TestClient_LocalBranches(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestRepo(t)
	client := NewClient(repoDir)

	runGit(t, repoDir, "branch", "feature/alpha")
	runGit(t, repoDir, "branch", "feature/beta")

	branches, err := client.LocalBranches(ctx)
	if err != nil {
		t.Fatalf("LocalBranches failed: %v", err)
	}

	want := map[string]bool{"main": true, "feature/alpha": true, "feature/beta": true}
	if len(branches) != len(want) {
		t.Fatalf("expected %d branches, got %v", len(want), branches)
	}
	for _, b := range branches {
		if !want[b] {
			t.Errorf("unexpected branch %q", b)
		}
	}
}

func TestClient_SetRemote(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestRepo(t)
	client := NewClient(repoDir)

	t.Run("add new remote", func(t *testing.T) {
		if err := client.SetRemote(ctx, "origin", "https://example.com/a.git"); err != nil {
			t.Fatalf("SetRemote failed: %v", err)
		}
		if got := runGit(t, repoDir, "remote", "get-url", "origin"); got != "https://example.com/a.git" {
			t.Errorf("expected remote URL to be set, got %q", got)
		}
	})

	t.Run("update existing remote", func(t *testing.T) {
		if err := client.SetRemote(ctx, "origin", "https://example.com/b.git"); err != nil {
			t.Fatalf("SetRemote failed: %v", err)
		}
		if got := runGit(t, repoDir, "remote", "get-url", "origin"); got != "https://example.com/b.git" {
			t.Errorf("expected remote URL to be updated, got %q", got)
		}
	})
}

func TestClient_HasRemote(t *testing.T) {
	ctx := context.Background()
	workDir, _ := setupSyncedRepo(t)
	client := NewClient(workDir)

	has, err := client.HasRemote(ctx, "origin")
	if err != nil {
		t.Fatalf("HasRemote failed: %v", err)
	}
	if !has {
		t.Error("expected origin to be configured")
	}

	has, err = client.HasRemote(ctx, "upstream")
	if err != nil {
		t.Fatalf("HasRemote failed: %v", err)
	}
	if has {
		t.Error("expected upstream to not be configured")
	}
}

func TestClient_AddAndCommit(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestRepo(t)
	client := NewClient(repoDir)

	if err := os.WriteFile(filepath.Join(repoDir, "test.txt"), []byte("test content"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if err := client.Add(ctx, "test.txt"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	sha, err := client.Commit(ctx, "add test file")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if len(sha) != 40 {
		t.Errorf("expected full commit SHA, got %q", sha)
	}

	if !client.IsClean(ctx) {
		t.Error("expected working directory to be clean after commit")
	}
}

func TestClient_IsClean(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestRepo(t)
	client := NewClient(repoDir)

	if !client.IsClean(ctx) {
		t.Error("expected working directory to be clean")
	}

	if err := os.WriteFile(filepath.Join(repoDir, "README.md"), []byte("modified content"), 0644); err != nil {
		t.Fatalf("failed to modify file: %v", err)
	}

	if client.IsClean(ctx) {
		t.Error("expected working directory to not be clean")
	}
}

func TestClient_Fetch(t *testing.T) {
	ctx := context.Background()
	workDir, remoteDir := setupSyncedRepo(t)
	client := NewClient(workDir)

	// Advance the remote through a second clone.
	otherDir := cloneRepo(t, remoteDir)
	sha := writeAndCommit(t, otherDir, "other.txt", "from the other clone", "other change")
	runGit(t, otherDir, "push", "origin", "main")

	if err := client.Fetch(ctx, "origin"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	got := runGit(t, workDir, "rev-parse", "refs/remotes/origin/main")
	if got != sha {
		t.Errorf("expected origin/main at %s after fetch, got %s", sha, got)
	}
}

func TestClient_MergeBase(t *testing.T) {
	ctx := context.Background()
	repoDir := setupTestRepo(t)
	client := NewClient(repoDir)

	first := runGit(t, repoDir, "rev-parse", "HEAD")
	second := writeAndCommit(t, repoDir, "a.txt", "a", "second commit")

	t.Run("ancestor", func(t *testing.T) {
		base, ok, err := client.mergeBase(ctx, first, second)
		if err != nil {
			t.Fatalf("mergeBase failed: %v", err)
		}
		if !ok {
			t.Fatal("expected a merge base")
		}
		if base != first {
			t.Errorf("expected merge base %s, got %s", first, base)
		}
	})

	t.Run("unrelated histories", func(t *testing.T) {
		// An orphan branch shares no history with main.
		runGit(t, repoDir, "checkout", "--orphan", "orphan")
		orphanSHA := writeAndCommit(t, repoDir, "b.txt", "b", "orphan commit")

		_, ok, err := client.mergeBase(ctx, second, orphanSHA)
		if err != nil {
			t.Fatalf("mergeBase failed: %v", err)
		}
		if ok {
			t.Error("expected no merge base for unrelated histories")
		}
	})
}

func TestParseCommitRecord(t *testing.T) {
	t.Run("multiline message", func(t *testing.T) {
		record := strings.Join([]string{
			"0123456789012345678901234567890123456789",
			"0123456",
			"Alice", "alice@example.com",
			"Bob", "bob@example.com",
			"1700000000", "1700000100",
			"subject line\n\nbody paragraph\n",
		}, "\x00")

		detail, err := parseCommitRecord(record)
		if err != nil {
			t.Fatalf("parseCommitRecord failed: %v", err)
		}

		if detail.ShortHash != "0123456" {
			t.Errorf("expected short hash 0123456, got %q", detail.ShortHash)
		}
		if detail.Author.Name != "Alice" || detail.Committer.Name != "Bob" {
			t.Errorf("unexpected signatures: %+v / %+v", detail.Author, detail.Committer)
		}
		if detail.Subject() != "subject line" {
			t.Errorf("expected subject %q, got %q", "subject line", detail.Subject())
		}
		if !strings.Contains(detail.Message, "body paragraph") {
			t.Errorf("expected message to keep the body, got %q", detail.Message)
		}
		if detail.AuthoredAt.Unix() != 1700000000 || detail.CommittedAt.Unix() != 1700000100 {
			t.Errorf("unexpected timestamps: %v / %v", detail.AuthoredAt, detail.CommittedAt)
		}
	})

	t.Run("malformed record", func(t *testing.T) {
		if _, err := parseCommitRecord("too\x00few\x00fields"); err == nil {
			t.Error("expected error for malformed record")
		}
	})
}

func TestDefaultConflictClassifier(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   bool
	}{
		{"content conflict", "CONFLICT (content): Merge conflict in app.txt", true},
		{"automatic merge failed", "Automatic merge failed; fix conflicts and then commit the result.", true},
		{"lowercase conflict", "conflict in file", true},
		{"clean merge output", "Merge made by the 'ort' strategy.", false},
		{"unrelated failure", "fatal: refusing to merge unrelated histories", false},
		{"empty output", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultConflictClassifier(tc.output); got != tc.want {
				t.Errorf("DefaultConflictClassifier(%q) = %v, want %v", tc.output, got, tc.want)
			}
		})
	}
}
