package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestCreateWorktreeClonesAndAttaches(t *testing.T) {
	origin := initGitRepo(t)
	base := t.TempDir()
	mainRepo := filepath.Join(base, "repos", "origin")
	wtPath := filepath.Join(base, "worktrees", "origin-login")

	gw := CLI{}
	if err := gw.CreateWorktree(mainRepo, wtPath, "feature/login", origin); err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}
	if _, err := os.Stat(wtPath); err != nil {
		t.Fatalf("expected worktree path to exist: %v", err)
	}
	if !IsGitRepo(mainRepo) {
		t.Fatalf("expected main repo clone at %s", mainRepo)
	}

	// A second worktree against the already-cloned repo must not re-clone.
	wtPath2 := filepath.Join(base, "worktrees", "origin-other")
	if err := gw.CreateWorktree(mainRepo, wtPath2, "feature/other", origin); err != nil {
		t.Fatalf("CreateWorktree (existing clone) failed: %v", err)
	}

	exists, err := gw.LocalBranchExists(mainRepo, "feature/login")
	if err != nil {
		t.Fatalf("LocalBranchExists failed: %v", err)
	}
	if !exists {
		t.Fatalf("expected feature/login branch to exist after worktree add")
	}
}

func TestRemoveWorktreeDeletesBranchWhenRequested(t *testing.T) {
	origin := initGitRepo(t)
	base := t.TempDir()
	mainRepo := filepath.Join(base, "repos", "origin")
	wtPath := filepath.Join(base, "worktrees", "origin-tmp")

	gw := CLI{}
	if err := gw.CreateWorktree(mainRepo, wtPath, "feature/tmp", origin); err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}
	if err := gw.RemoveWorktree(mainRepo, wtPath, true, "feature/tmp"); err != nil {
		t.Fatalf("RemoveWorktree failed: %v", err)
	}
	if _, err := os.Stat(wtPath); !os.IsNotExist(err) {
		t.Fatalf("expected worktree path removed, err=%v", err)
	}
	exists, err := gw.LocalBranchExists(mainRepo, "feature/tmp")
	if err != nil {
		t.Fatalf("LocalBranchExists failed: %v", err)
	}
	if exists {
		t.Fatalf("expected feature/tmp branch deleted")
	}
}

func TestUnpushedCommitCount(t *testing.T) {
	origin := initGitRepo(t)
	base := t.TempDir()
	mainRepo := filepath.Join(base, "repos", "origin")
	wtPath := filepath.Join(base, "worktrees", "origin-work")

	gw := CLI{}
	if err := gw.CreateWorktree(mainRepo, wtPath, "feature/work", origin); err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}

	n, err := gw.UnpushedCommitCount(mainRepo, "feature/work")
	if err != nil {
		t.Fatalf("UnpushedCommitCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("fresh branch unpushed count = %d, want 0", n)
	}

	runGitCmd(t, wtPath, "config", "user.email", "test@example.com")
	runGitCmd(t, wtPath, "config", "user.name", "tester")
	for i, name := range []string{"one.txt", "two.txt"} {
		if err := os.WriteFile(filepath.Join(wtPath, name), []byte{byte('0' + i), '\n'}, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		runGitCmd(t, wtPath, "add", name)
		runGitCmd(t, wtPath, "commit", "-m", "add "+name)
	}

	n, err = gw.UnpushedCommitCount(mainRepo, "feature/work")
	if err != nil {
		t.Fatalf("UnpushedCommitCount failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("unpushed count = %d, want 2", n)
	}
}

func TestIsProtectedBranch(t *testing.T) {
	origin := initGitRepo(t)
	base := t.TempDir()
	mainRepo := filepath.Join(base, "repos", "origin")
	if err := (CLI{}).CreateWorktree(mainRepo, filepath.Join(base, "worktrees", "wt"), "feature/x", origin); err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}

	gw := CLI{}
	for _, branch := range []string{"main", "master"} {
		protected, err := gw.IsProtectedBranch(mainRepo, branch)
		if err != nil {
			t.Fatalf("IsProtectedBranch(%q) failed: %v", branch, err)
		}
		if !protected {
			t.Fatalf("expected %q to be protected", branch)
		}
	}
	protected, err := gw.IsProtectedBranch(mainRepo, "feature/x")
	if err != nil {
		t.Fatalf("IsProtectedBranch failed: %v", err)
	}
	if protected {
		t.Fatalf("feature/x should not be protected")
	}
}

func TestPullLatestAfterOriginAdvances(t *testing.T) {
	origin := initGitRepo(t)
	base := t.TempDir()
	mainRepo := filepath.Join(base, "repos", "origin")
	wtPath := filepath.Join(base, "worktrees", "origin-sync")

	gw := CLI{}
	if err := gw.CreateWorktree(mainRepo, wtPath, "feature/sync", origin); err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}

	// Advance the same branch in origin, then pull it into the worktree.
	runGitCmd(t, origin, "checkout", "-b", "feature/sync")
	if err := os.WriteFile(filepath.Join(origin, "new.txt"), []byte("new\n"), 0o644); err != nil {
		t.Fatalf("write new.txt: %v", err)
	}
	runGitCmd(t, origin, "add", "new.txt")
	runGitCmd(t, origin, "commit", "-m", "advance")

	if err := gw.PullLatest(wtPath, "feature/sync"); err != nil {
		t.Fatalf("PullLatest failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(wtPath, "new.txt")); err != nil {
		t.Fatalf("expected pulled file in worktree: %v", err)
	}
}

func initGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	repo := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(repo, 0o755); err != nil {
		t.Fatalf("mkdir repo: %v", err)
	}
	runGitCmd(t, repo, "init")
	runGitCmd(t, repo, "config", "user.email", "test@example.com")
	runGitCmd(t, repo, "config", "user.name", "tester")
	if err := os.WriteFile(filepath.Join(repo, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write README.md: %v", err)
	}
	runGitCmd(t, repo, "add", "README.md")
	runGitCmd(t, repo, "commit", "-m", "init")
	return repo
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, string(out))
	}
}
