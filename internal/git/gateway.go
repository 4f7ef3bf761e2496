package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/agentree/internal/naming"
)

// Gateway is the narrow source-control contract consumed by the worktree
// lifecycle controller. Implementations wrap external git commands; every
// failure carries the operation that produced it.
type Gateway interface {
	IsValidURL(repoURL string) bool
	// PullLatest fast-forwards branchName inside an existing worktree.
	PullLatest(worktreePath, branchName string) error
	// CreateWorktree clones repoURL into mainRepoPath when it is not a
	// repository yet, then attaches a new worktree for branchName at
	// worktreePath.
	CreateWorktree(mainRepoPath, worktreePath, branchName, repoURL string) error
	// RemoveWorktree detaches the worktree and, when deleteBranch is set,
	// force-deletes its local branch.
	RemoveWorktree(mainRepoPath, worktreePath string, deleteBranch bool, branchName string) error
	IsProtectedBranch(mainRepoPath, branchName string) (bool, error)
	LocalBranchExists(mainRepoPath, branchName string) (bool, error)
	UnpushedCommitCount(mainRepoPath, branchName string) (int, error)
}

// CLI executes the real git binary.
type CLI struct{}

var _ Gateway = CLI{}

func (CLI) IsValidURL(repoURL string) bool {
	return naming.IsValidRepoURL(repoURL)
}

func (CLI) PullLatest(worktreePath, branchName string) error {
	if _, err := runGit(worktreePath, "pull", "origin", branchName); err != nil {
		return err
	}
	return nil
}

func (CLI) CreateWorktree(mainRepoPath, worktreePath, branchName, repoURL string) error {
	branchName = strings.TrimSpace(branchName)
	if branchName == "" {
		return fmt.Errorf("branch name is required")
	}

	if !IsGitRepo(mainRepoPath) {
		if err := os.MkdirAll(filepath.Dir(mainRepoPath), 0o755); err != nil {
			return fmt.Errorf("create repo parent directory: %w", err)
		}
		if _, err := runGit("", "clone", repoURL, mainRepoPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o755); err != nil {
		return fmt.Errorf("create worktree parent directory: %w", err)
	}

	local, err := CLI{}.LocalBranchExists(mainRepoPath, branchName)
	if err != nil {
		return err
	}
	if local {
		_, err = runGit(mainRepoPath, "worktree", "add", worktreePath, branchName)
		return err
	}

	// Track the remote branch when it exists, otherwise start a fresh one.
	if _, err := runGit(mainRepoPath, "fetch", "origin", branchName); err == nil {
		_, err = runGit(mainRepoPath, "worktree", "add", "--track", "-b", branchName, worktreePath, "origin/"+branchName)
		return err
	}
	_, err = runGit(mainRepoPath, "worktree", "add", "-b", branchName, worktreePath)
	return err
}

func (CLI) RemoveWorktree(mainRepoPath, worktreePath string, deleteBranch bool, branchName string) error {
	if _, err := runGit(mainRepoPath, "worktree", "remove", "--force", worktreePath); err != nil {
		return err
	}
	if deleteBranch && branchName != "" {
		if _, err := runGit(mainRepoPath, "branch", "-D", branchName); err != nil {
			return err
		}
	}
	return nil
}

// IsProtectedBranch treats main, master, and the remote's default branch as
// protected. A failure resolving the remote HEAD (e.g. a repository with no
// remote) is not an error; only the fixed set applies then.
func (CLI) IsProtectedBranch(mainRepoPath, branchName string) (bool, error) {
	if branchName == "main" || branchName == "master" {
		return true, nil
	}
	out, err := runGit(mainRepoPath, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		return false, nil
	}
	defaultBranch := strings.TrimPrefix(strings.TrimSpace(out), "origin/")
	return branchName == defaultBranch, nil
}

func (CLI) LocalBranchExists(mainRepoPath, branchName string) (bool, error) {
	out, err := runGit(mainRepoPath, "branch", "--list", branchName)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// UnpushedCommitCount counts commits on branchName that are not on its
// upstream. A branch with no upstream counts everything not reachable from
// any origin ref.
func (CLI) UnpushedCommitCount(mainRepoPath, branchName string) (int, error) {
	out, err := runGit(mainRepoPath, "rev-list", "--count", branchName+"@{upstream}.."+branchName)
	if err != nil {
		out, err = runGit(mainRepoPath, "rev-list", "--count", branchName, "--not", "--remotes=origin")
		if err != nil {
			return 0, err
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse rev-list count %q: %w", strings.TrimSpace(out), err)
	}
	return n, nil
}
