// Package lifecycle orchestrates worktree create/sync and delete, agent
// creation and teardown, and the cascading cleanup that deletion fans out
// across the manifest, trace, and transcript stores.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/agentree/internal/git"
	"github.com/user/agentree/internal/manifest"
	"github.com/user/agentree/internal/naming"
	"github.com/user/agentree/internal/state"
	"github.com/user/agentree/internal/tabs"
	"github.com/user/agentree/internal/trace"
)

// Result is the structured outcome of a worktree operation. Failures carry a
// human-readable Message plus the underlying Error; they are returned, never
// thrown past this boundary.
type Result struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	FolderName string `json:"folder_name,omitempty"`
	LocalPath  string `json:"local_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// EventSink receives lifecycle events for UI push. May be nil.
type EventSink interface {
	Publish(eventType string, data map[string]any)
}

type Controller struct {
	gw       git.Gateway
	state    *state.Store
	agents   *manifest.AgentRepo
	sessions *manifest.SessionMapRepo
	traces   *trace.Store
	dataDir  string
	events   EventSink
}

func NewController(gw git.Gateway, st *state.Store, agents *manifest.AgentRepo, sessions *manifest.SessionMapRepo, traces *trace.Store, dataDir string, events EventSink) *Controller {
	return &Controller{
		gw:       gw,
		state:    st,
		agents:   agents,
		sessions: sessions,
		traces:   traces,
		dataDir:  dataDir,
		events:   events,
	}
}

func (c *Controller) WorktreePath(folderName string) string {
	return filepath.Join(c.dataDir, "worktrees", folderName)
}

func (c *Controller) mainRepoPath(repoURL string) string {
	return filepath.Join(c.dataDir, "repos", naming.RepoName(repoURL))
}

func (c *Controller) publish(eventType string, data map[string]any) {
	if c.events != nil {
		c.events.Publish(eventType, data)
	}
}

func failure(message string, err error) Result {
	res := Result{Success: false, Message: message}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// CreateOrSync creates the worktree for (repoURL, branchName), or pulls the
// latest changes when it already exists. Calling it twice with the same pair
// yields one directory and one configuration entry.
func (c *Controller) CreateOrSync(repoURL, branchName string) Result {
	if !c.gw.IsValidURL(repoURL) {
		return failure("Repository URL must be a GitHub, GitLab, or Bitbucket HTTPS or SSH URL", fmt.Errorf("%w: invalid repository URL %q", ErrValidation, repoURL))
	}
	if strings.TrimSpace(branchName) == "" {
		return failure("Branch name is required", fmt.Errorf("%w: empty branch name", ErrValidation))
	}

	folderName := naming.FolderName(repoURL, branchName)
	worktreePath := c.WorktreePath(folderName)
	entry := state.WorktreeEntry{
		RepoURL:    repoURL,
		BranchName: branchName,
		FolderName: folderName,
	}

	if dirExists(worktreePath) {
		if err := c.gw.PullLatest(worktreePath, branchName); err != nil {
			slog.Error("worktree sync failed", "worktree", folderName, "error", err)
			return failure(fmt.Sprintf("Failed to update worktree %q", folderName), err)
		}
		// The directory can survive a lost configuration entry; re-add it.
		if _, err := c.state.EnsureWorktree(entry); err != nil {
			return failure("Failed to record worktree in configuration", err)
		}
		slog.Info("worktree synced", "worktree", folderName, "branch", branchName)
		c.publish("worktree.updated", map[string]any{"folder_name": folderName})
		return Result{
			Success:    true,
			Message:    fmt.Sprintf("Updated existing worktree %q", folderName),
			FolderName: folderName,
			LocalPath:  worktreePath,
		}
	}

	if err := c.gw.CreateWorktree(c.mainRepoPath(repoURL), worktreePath, branchName, repoURL); err != nil {
		slog.Error("worktree create failed", "worktree", folderName, "error", err)
		return failure(fmt.Sprintf("Failed to create worktree %q", folderName), err)
	}
	if !dirExists(worktreePath) {
		return failure(
			fmt.Sprintf("Worktree %q creation appeared to succeed but the directory is missing", folderName),
			fmt.Errorf("directory %q not found after worktree add", worktreePath),
		)
	}
	if _, err := c.state.EnsureWorktree(entry); err != nil {
		return failure("Failed to record worktree in configuration", err)
	}
	slog.Info("worktree created", "worktree", folderName, "branch", branchName)
	c.publish("worktree.created", map[string]any{"folder_name": folderName, "branch_name": branchName})
	return Result{
		Success:    true,
		Message:    fmt.Sprintf("Created new worktree %q", folderName),
		FolderName: folderName,
		LocalPath:  worktreePath,
	}
}

// Delete removes the worktree named folderName: filesystem and branch via the
// gateway, then cascading artifact cleanup, then the configuration entry.
// Only the final configuration removal is guaranteed; everything before it is
// best effort. The returned error is non-nil only when the worktree is not in
// the configuration at all.
func (c *Controller) Delete(folderName string, confirm ConfirmFunc) (Result, error) {
	entry, err := c.state.GetWorktree(folderName)
	if err != nil {
		return failure("Failed to read configuration", err), nil
	}
	if entry == nil {
		return Result{}, fmt.Errorf("worktree %q: %w", folderName, ErrNotFound)
	}

	mainRepo := c.mainRepoPath(entry.RepoURL)
	branch := entry.BranchName

	protected, err := c.gw.IsProtectedBranch(mainRepo, branch)
	if err != nil {
		// When in doubt, treat the branch as protected.
		slog.Warn("protected-branch check failed; branch will not be deleted", "branch", branch, "error", err)
		protected = true
	}

	deleteBranch := false
	if !protected {
		exists, err := c.gw.LocalBranchExists(mainRepo, branch)
		if err != nil {
			slog.Warn("local branch lookup failed; branch will not be deleted", "branch", branch, "error", err)
		} else if exists {
			unpushed, err := c.gw.UnpushedCommitCount(mainRepo, branch)
			switch {
			case err != nil:
				slog.Warn("unpushed commit count failed; branch will not be deleted", "branch", branch, "error", err)
			case unpushed > 0:
				if confirm == nil {
					slog.Warn("no confirmation surface available; skipping branch deletion", "branch", branch, "unpushed", unpushed)
				} else {
					decision := confirm(newConfirmSummary(branch, unpushed))
					if !decision.Proceed {
						return Result{Success: false, Message: "Deletion cancelled by user"}, nil
					}
					deleteBranch = decision.ForceDeleteBranch
				}
			default:
				deleteBranch = true
			}
		}
	}
	if protected {
		deleteBranch = false
	}

	if err := c.gw.RemoveWorktree(mainRepo, c.WorktreePath(folderName), deleteBranch, branch); err != nil {
		// The worktree's data is still purged even when the filesystem or
		// branch step partially failed.
		slog.Error("worktree remove failed; continuing cleanup", "worktree", folderName, "error", err)
	}

	report := c.cleanupWorktreeArtifacts(folderName)

	// The authoritative "this worktree no longer exists" signal.
	if err := c.state.RemoveWorktree(folderName); err != nil {
		return failure(fmt.Sprintf("Failed to remove worktree %q from configuration", folderName), err), nil
	}

	slog.Info("worktree deleted", "worktree", folderName, "branch_deleted", deleteBranch)
	c.publish("worktree.deleted", map[string]any{"folder_name": folderName, "cleanup": report})
	return Result{
		Success:    true,
		Message:    fmt.Sprintf("Deleted worktree %q", folderName),
		FolderName: folderName,
	}, nil
}

// CreateAgent adds an agent to a worktree, enforcing the tab capacity bound
// before anything is written.
func (c *Controller) CreateAgent(ctx context.Context, worktreeID, title string, metadata map[string]string) (*manifest.Agent, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: agent title is required", ErrValidation)
	}
	entry, err := c.state.GetWorktree(worktreeID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("worktree %q: %w", worktreeID, ErrNotFound)
	}

	count, err := c.agents.CountByWorktree(ctx, worktreeID)
	if err != nil {
		return nil, err
	}
	if count >= tabs.MaxAgentTabs {
		return nil, fmt.Errorf("worktree %q already has %d agents (limit %d): %w", worktreeID, count, tabs.MaxAgentTabs, ErrCapacity)
	}

	agent := &manifest.Agent{
		WorktreeID: worktreeID,
		Title:      title,
		Metadata:   metadata,
	}
	if err := c.agents.Create(ctx, agent); err != nil {
		return nil, err
	}
	slog.Info("agent created", "agent", agent.ID, "worktree", worktreeID)
	c.publish("agent.created", map[string]any{"agent_id": agent.ID, "folder_name": worktreeID})
	return agent, nil
}

// DeleteAgent removes one agent: its trace files and session mapping are
// cleaned up best-effort, then the agent record itself is deleted.
func (c *Controller) DeleteAgent(ctx context.Context, agentID string) error {
	agent, err := c.agents.Get(ctx, agentID)
	if err != nil {
		return err
	}
	if agent == nil {
		return fmt.Errorf("agent %q: %w", agentID, ErrNotFound)
	}

	sessionID, err := c.sessions.GetSession(ctx, agent.WorktreeID, agent.ID)
	if err != nil {
		slog.Warn("session lookup failed during agent delete", "agent", agentID, "error", err)
	} else if sessionID != "" {
		if err := c.traces.DeleteTraceFiles(agent.WorktreeID, []string{sessionID}); err != nil {
			slog.Warn("trace cleanup failed during agent delete", "agent", agentID, "session", sessionID, "error", err)
		}
	}
	if err := c.sessions.DeleteAgent(ctx, agent.WorktreeID, agent.ID); err != nil {
		slog.Warn("session mapping cleanup failed during agent delete", "agent", agentID, "error", err)
	}

	if err := c.agents.Delete(ctx, agentID); err != nil {
		return err
	}
	slog.Info("agent deleted", "agent", agentID, "worktree", agent.WorktreeID)
	c.publish("agent.deleted", map[string]any{"agent_id": agentID, "folder_name": agent.WorktreeID})
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
