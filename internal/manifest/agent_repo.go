package manifest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type AgentRepo struct {
	db *sql.DB
}

func NewAgentRepo(db *sql.DB) *AgentRepo {
	return &AgentRepo{db: db}
}

func (r *AgentRepo) Create(ctx context.Context, agent *Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.Status == "" {
		agent.Status = AgentStatusIdle
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = nowUTC()
	}
	agent.UpdatedAt = agent.CreatedAt

	meta, err := encodeMetadata(agent.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO agents (id, worktree_id, title, status, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, agent.ID, agent.WorktreeID, agent.Title, agent.Status, meta,
		formatTimestamp(agent.CreatedAt), formatTimestamp(agent.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *AgentRepo) Get(ctx context.Context, id string) (*Agent, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, worktree_id, title, status, metadata, created_at, updated_at
FROM agents
WHERE id = ?
`, id)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent %q: %w", id, err)
	}
	return agent, nil
}

func (r *AgentRepo) ListByWorktree(ctx context.Context, worktreeID string) ([]*Agent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, worktree_id, title, status, metadata, created_at, updated_at
FROM agents
WHERE worktree_id = ?
ORDER BY created_at ASC, id ASC
`, worktreeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []*Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating agents: %w", err)
	}
	return agents, nil
}

func (r *AgentRepo) CountByWorktree(ctx context.Context, worktreeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE worktree_id = ?`, worktreeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count agents for %q: %w", worktreeID, err)
	}
	return n, nil
}

func (r *AgentRepo) Update(ctx context.Context, agent *Agent) error {
	agent.UpdatedAt = nowUTC()
	meta, err := encodeMetadata(agent.Metadata)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE agents
SET title = ?, status = ?, metadata = ?, updated_at = ?
WHERE id = ?
`, agent.Title, agent.Status, meta, formatTimestamp(agent.UpdatedAt), agent.ID)
	if err != nil {
		return fmt.Errorf("failed to update agent %q: %w", agent.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read updated rows for agent %q: %w", agent.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("agent %q not found", agent.ID)
	}
	return nil
}

func (r *AgentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete agent %q: %w", id, err)
	}
	return nil
}

func (r *AgentRepo) DeleteByWorktree(ctx context.Context, worktreeID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE worktree_id = ?`, worktreeID); err != nil {
		return fmt.Errorf("failed to delete agents for %q: %w", worktreeID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*Agent, error) {
	var a Agent
	var meta, createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.WorktreeID, &a.Title, &a.Status, &meta, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
