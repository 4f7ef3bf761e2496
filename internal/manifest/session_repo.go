package manifest

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionMapRepo persists the (worktree, agent) → session id mapping and the
// per-agent additional-directory grants. At most one session id is recorded
// per pair; an absent or empty mapping means the agent has no session yet.
type SessionMapRepo struct {
	db *sql.DB
}

func NewSessionMapRepo(db *sql.DB) *SessionMapRepo {
	return &SessionMapRepo{db: db}
}

// GetSession returns "" when the agent has no established session. That is
// the expected state for a freshly created agent, not an error.
func (r *SessionMapRepo) GetSession(ctx context.Context, worktreeID, agentID string) (string, error) {
	var sessionID string
	err := r.db.QueryRowContext(ctx, `
SELECT session_id FROM agent_sessions WHERE worktree_id = ? AND agent_id = ?
`, worktreeID, agentID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session for %q/%q: %w", worktreeID, agentID, err)
	}
	return sessionID, nil
}

// UpdateSession upserts the mapping, overwriting any prior session id for the
// pair (last write wins). Existing directory grants are preserved.
func (r *SessionMapRepo) UpdateSession(ctx context.Context, worktreeID, agentID, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO agent_sessions (worktree_id, agent_id, session_id, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(worktree_id, agent_id) DO UPDATE SET session_id = excluded.session_id, updated_at = excluded.updated_at
`, worktreeID, agentID, sessionID, formatTimestamp(nowUTC()))
	if err != nil {
		return fmt.Errorf("failed to update session for %q/%q: %w", worktreeID, agentID, err)
	}
	return nil
}

// DeleteAgent removes the single pair's mapping and grants.
func (r *SessionMapRepo) DeleteAgent(ctx context.Context, worktreeID, agentID string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM agent_sessions WHERE worktree_id = ? AND agent_id = ?
`, worktreeID, agentID)
	if err != nil {
		return fmt.Errorf("failed to delete session mapping for %q/%q: %w", worktreeID, agentID, err)
	}
	return nil
}

// DeleteWorktree removes every mapping under a worktree in one statement.
// Used only by worktree deletion.
func (r *SessionMapRepo) DeleteWorktree(ctx context.Context, worktreeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM agent_sessions WHERE worktree_id = ?`, worktreeID)
	if err != nil {
		return fmt.Errorf("failed to delete session manifest for %q: %w", worktreeID, err)
	}
	return nil
}

// SessionIDs lists the distinct non-empty session ids recorded under a
// worktree, for trace-file cleanup.
func (r *SessionMapRepo) SessionIDs(ctx context.Context, worktreeID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT session_id FROM agent_sessions WHERE worktree_id = ? AND session_id != ''
`, worktreeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session ids for %q: %w", worktreeID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating session ids: %w", err)
	}
	return ids, nil
}

func (r *SessionMapRepo) GetAdditionalDirectories(ctx context.Context, worktreeID, agentID string) ([]string, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `
SELECT additional_dirs FROM agent_sessions WHERE worktree_id = ? AND agent_id = ?
`, worktreeID, agentID).Scan(&raw)
	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get additional directories for %q/%q: %w", worktreeID, agentID, err)
	}
	return decodeStringSlice(raw)
}

// UpdateAdditionalDirectories upserts the grant list, preserving any recorded
// session id.
func (r *SessionMapRepo) UpdateAdditionalDirectories(ctx context.Context, worktreeID, agentID string, dirs []string) error {
	encoded, err := encodeStringSlice(dirs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO agent_sessions (worktree_id, agent_id, additional_dirs, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(worktree_id, agent_id) DO UPDATE SET additional_dirs = excluded.additional_dirs, updated_at = excluded.updated_at
`, worktreeID, agentID, encoded, formatTimestamp(nowUTC()))
	if err != nil {
		return fmt.Errorf("failed to update additional directories for %q/%q: %w", worktreeID, agentID, err)
	}
	return nil
}
