package hub

// Event is the single server→client message shape. Type names the lifecycle
// transition ("worktree.created", "agent.deleted", ...), Data carries the
// transition's payload.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	Ts   int64          `json:"ts"`
}
