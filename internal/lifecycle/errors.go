package lifecycle

import "errors"

var (
	// ErrNotFound marks lookups of worktrees or agents that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrCapacity marks agent creation beyond the per-worktree tab bound.
	ErrCapacity = errors.New("capacity exceeded")
	// ErrValidation marks requests rejected before any side effect.
	ErrValidation = errors.New("validation failed")
)

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsCapacity(err error) bool   { return errors.Is(err, ErrCapacity) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
