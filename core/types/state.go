package types

import (
	"maps"
	"sync"
)

// Location is a point in the game world.
type Location struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// AgentState is the record every module and the coordinator share.
// Each sub-struct has exactly one writer:
//
//	World           world connector module
//	Memory          memory module
//	Social          social module
//	ActionAwareness awareness module
//	Decisions       coordinator
//
// Everybody may read everything. Readers must tolerate empty values.
type AgentState struct {
	World           WorldState
	Memory          Fields
	Social          Fields
	ActionAwareness Fields
	Decisions       DecisionLog
}

// NewAgentState returns an empty state.
func NewAgentState() *AgentState {
	return &AgentState{}
}

// WorldState holds what the world connector observed last.
type WorldState struct {
	mu        sync.RWMutex
	inventory map[string]int
	location  *Location
}

// Set replaces inventory and location in one step.
func (w *WorldState) Set(inventory map[string]int, location Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inventory = maps.Clone(inventory)
	w.location = &location
}

// SetInventory replaces the inventory, leaving the location untouched.
func (w *WorldState) SetInventory(inventory map[string]int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inventory = maps.Clone(inventory)
}

// SetLocation replaces the location, leaving the inventory untouched.
func (w *WorldState) SetLocation(location Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.location = &location
}

// Inventory returns a copy of the inventory. It is nil if never set.
func (w *WorldState) Inventory() map[string]int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return maps.Clone(w.inventory)
}

// Location returns the last observed location and whether one was observed.
func (w *WorldState) Location() (Location, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.location == nil {
		return Location{}, false
	}
	return *w.location, true
}

// Fields is a free-form mapping owned by a single module.
type Fields struct {
	mu     sync.RWMutex
	values map[string]any
}

// Set stores value under key.
func (f *Fields) Set(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[string]any{}
	}
	f.values[key] = value
}

// Delete removes key.
func (f *Fields) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

// Snapshot returns a shallow copy of every field.
func (f *Fields) Snapshot() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]any, len(f.values))
	maps.Copy(out, f.values)
	return out
}

// Keys the coordinator reads from the module-owned field sets.
const (
	RelevantMemoriesKey = "relevantMemories"
	ActionFeedbackKey   = "actionFeedback"
	PlayersKey          = "players"
)
