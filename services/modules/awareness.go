package modules

import (
	"context"
	"sync"
	"time"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
)

// Feedback is what the agent learnt about one of its decisions.
type Feedback struct {
	Action         string         `json:"action"`
	Parameters     map[string]any `json:"parameters"`
	IssuedAt       time.Time      `json:"issued_at"`
	InventoryDelta map[string]int `json:"inventory_delta,omitempty"`
	Moved          bool           `json:"moved"`
	Observed       bool           `json:"observed"`
}

// Awareness tracks how the world changed after each decision and publishes
// the most recent window as actionAwareness.actionFeedback.
type Awareness struct {
	module.Base
	window int

	mu            sync.Mutex
	feedback      []Feedback
	lastInventory map[string]int
	lastLocation  *types.Location
	primed        bool
}

// NewAwareness builds the module. The "window" option bounds the published
// feedback (default 10).
func NewAwareness(cfg *config.Config, state *types.AgentState) (*Awareness, error) {
	base, err := module.NewBase(NameAwareness, cfg, state)
	if err != nil {
		return nil, err
	}
	window := base.Config().Int("window", 10)
	if window <= 0 {
		window = 10
	}
	return &Awareness{Base: base, window: window}, nil
}

func (a *Awareness) OnDecision(_ context.Context, d types.Decision) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.feedback = append(a.feedback, Feedback{
		Action:     d.Action,
		Parameters: d.Parameters,
		IssuedAt:   d.Timestamp,
	})
	if len(a.feedback) > a.window {
		a.feedback = a.feedback[len(a.feedback)-a.window:]
	}
	return nil
}

// Update attributes the world change since the previous tick to every
// decision not yet observed, then publishes the window.
func (a *Awareness) Update(context.Context) error {
	inventory := a.State().World.Inventory()
	location, hasLocation := a.State().World.Location()

	a.mu.Lock()
	delta := inventoryDelta(a.lastInventory, inventory)
	moved := hasLocation && a.lastLocation != nil && *a.lastLocation != location
	for i := range a.feedback {
		// the first tick only sets the baseline
		if a.feedback[i].Observed || !a.primed {
			continue
		}
		a.feedback[i].InventoryDelta = delta
		a.feedback[i].Moved = moved
		a.feedback[i].Observed = true
	}
	a.lastInventory = inventory
	a.primed = true
	if hasLocation {
		a.lastLocation = &location
	}
	published := append([]Feedback{}, a.feedback...)
	a.mu.Unlock()

	a.State().ActionAwareness.Set(types.ActionFeedbackKey, published)
	return nil
}

func inventoryDelta(before, after map[string]int) map[string]int {
	delta := map[string]int{}
	for item, n := range after {
		if d := n - before[item]; d != 0 {
			delta[item] = d
		}
	}
	for item, n := range before {
		if _, ok := after[item]; !ok {
			delta[item] = -n
		}
	}
	return delta
}
