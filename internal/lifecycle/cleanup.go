package lifecycle

import (
	"context"
	"log/slog"
)

// StepResult records the outcome of one cleanup step so partial failures are
// visible as a unit instead of being swallowed ad hoc.
type StepResult struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// cleanupWorktreeArtifacts fans deletion out across the independent stores.
// Each step is isolated: a failure is logged and recorded, and the remaining
// steps still run. Teardown is never cancelled mid-flight, so it does not
// take a caller context.
func (c *Controller) cleanupWorktreeArtifacts(folderName string) []StepResult {
	ctx := context.Background()
	report := make([]StepResult, 0, 5)
	run := func(step string, fn func() error) {
		if err := fn(); err != nil {
			slog.Warn("cleanup step failed", "step", step, "worktree", folderName, "error", err)
			report = append(report, StepResult{Step: step, Error: err.Error()})
			return
		}
		report = append(report, StepResult{Step: step, OK: true})
	}

	var sessionIDs []string
	run("collect-sessions", func() error {
		ids, err := c.sessions.SessionIDs(ctx, folderName)
		sessionIDs = ids
		return err
	})
	run("delete-trace-files", func() error {
		return c.traces.DeleteTraceFiles(folderName, sessionIDs)
	})
	run("delete-session-manifest", func() error {
		return c.sessions.DeleteWorktree(ctx, folderName)
	})
	run("delete-agents", func() error {
		return c.agents.DeleteByWorktree(ctx, folderName)
	})
	run("delete-transcripts", func() error {
		return c.traces.DeleteTranscripts(folderName)
	})
	return report
}
