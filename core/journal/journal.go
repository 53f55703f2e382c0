// Package journal persists the decision log between sessions.
package journal

import (
	"time"

	"github.com/mudler/LocalCraft/core/types"
)

// Snapshot is what a checkpoint records.
type Snapshot struct {
	Decisions []types.Decision `json:"decisions"`
	Inventory map[string]int   `json:"inventory,omitempty"`
	Location  *types.Location  `json:"location,omitempty"`
	SavedAt   time.Time        `json:"saved_at"`
}

// Store defines checkpoint persistence
type Store interface {
	// Save replaces the stored snapshot
	Save(s Snapshot) error

	// Load returns the stored snapshot, empty if nothing was saved yet
	Load() (Snapshot, error)

	// Close releases resources
	Close() error
}

// Capture copies the persistent parts of state.
func Capture(state *types.AgentState, at time.Time) Snapshot {
	s := Snapshot{
		Decisions: state.Decisions.All(),
		Inventory: state.World.Inventory(),
		SavedAt:   at,
	}
	if loc, ok := state.World.Location(); ok {
		s.Location = &loc
	}
	return s
}

// Restore replays a snapshot's decisions into an empty log. World data is
// not restored: the world connector owns it and will observe it again.
func Restore(state *types.AgentState, s Snapshot) int {
	if state.Decisions.Len() > 0 {
		return 0
	}
	for _, d := range s.Decisions {
		state.Decisions.Append(d)
	}
	return len(s.Decisions)
}
