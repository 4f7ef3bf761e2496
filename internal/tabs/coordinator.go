// Package tabs coordinates the per-worktree tab model: up to MaxAgentTabs
// agent tabs plus the fixed system tabs, with a persisted active-tab pointer.
package tabs

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/agentree/internal/manifest"
	"github.com/user/agentree/internal/state"
)

// MaxAgentTabs bounds the number of agents (and therefore agent tabs) per
// worktree. System tabs do not count against it.
const MaxAgentTabs = 10

const (
	TabTerminal = "terminal"
	TabChanges  = "changes"

	// DefaultTab is used when a persisted active tab no longer resolves.
	DefaultTab = TabTerminal
)

const (
	TabTypeAgent    = "agent"
	TabTypeTerminal = "terminal"
	TabTypeChanges  = "changes"
)

var ErrUnknownTab = errors.New("tab does not resolve in this worktree")

type Tab struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	IsActive bool   `json:"is_active"`
}

// EventSink receives tab events for UI push. May be nil.
type EventSink interface {
	Publish(eventType string, data map[string]any)
}

type Coordinator struct {
	state  *state.Store
	agents *manifest.AgentRepo
	events EventSink
}

func NewCoordinator(st *state.Store, agents *manifest.AgentRepo, events EventSink) *Coordinator {
	return &Coordinator{state: st, agents: agents, events: events}
}

// SetActiveTab validates that tabID resolves (a system tab or an agent in the
// worktree) and persists the pointer synchronously. A missing worktree is a
// named failure, never a silent no-op.
func (c *Coordinator) SetActiveTab(ctx context.Context, worktreeID, tabID string) error {
	entry, err := c.state.GetWorktree(worktreeID)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("set active tab for %q: %w", worktreeID, state.ErrWorktreeNotFound)
	}
	ok, err := c.resolves(ctx, worktreeID, tabID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tab %q in worktree %q: %w", tabID, worktreeID, ErrUnknownTab)
	}
	if err := c.state.SetActiveTab(worktreeID, tabID); err != nil {
		return err
	}
	if c.events != nil {
		c.events.Publish("tab.activated", map[string]any{"folder_name": worktreeID, "tab_id": tabID})
	}
	return nil
}

// ActiveTab returns the persisted active tab id. A recorded id that no longer
// resolves (its agent was deleted) falls back to the default system tab; a
// worktree that never set one returns "".
func (c *Coordinator) ActiveTab(ctx context.Context, worktreeID string) (string, error) {
	tabID, err := c.state.ActiveTab(worktreeID)
	if err != nil {
		return "", err
	}
	if tabID == "" {
		return "", nil
	}
	ok, err := c.resolves(ctx, worktreeID, tabID)
	if err != nil {
		return "", err
	}
	if !ok {
		return DefaultTab, nil
	}
	return tabID, nil
}

// Tabs lists the worktree's agent tabs in creation order followed by the
// system tabs. Exactly one tab is marked active.
func (c *Coordinator) Tabs(ctx context.Context, worktreeID string) ([]Tab, error) {
	entry, err := c.state.GetWorktree(worktreeID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("tabs for %q: %w", worktreeID, state.ErrWorktreeNotFound)
	}

	agents, err := c.agents.ListByWorktree(ctx, worktreeID)
	if err != nil {
		return nil, err
	}

	active, err := c.ActiveTab(ctx, worktreeID)
	if err != nil {
		return nil, err
	}
	if active == "" {
		active = DefaultTab
	}

	tabs := make([]Tab, 0, len(agents)+2)
	for _, a := range agents {
		tabs = append(tabs, Tab{ID: a.ID, Type: TabTypeAgent, Title: a.Title, IsActive: a.ID == active})
	}
	tabs = append(tabs,
		Tab{ID: TabTerminal, Type: TabTypeTerminal, IsActive: active == TabTerminal},
		Tab{ID: TabChanges, Type: TabTypeChanges, IsActive: active == TabChanges},
	)
	return tabs, nil
}

func (c *Coordinator) resolves(ctx context.Context, worktreeID, tabID string) (bool, error) {
	if tabID == TabTerminal || tabID == TabChanges {
		return true, nil
	}
	agent, err := c.agents.Get(ctx, tabID)
	if err != nil {
		return false, err
	}
	return agent != nil && agent.WorktreeID == worktreeID, nil
}
