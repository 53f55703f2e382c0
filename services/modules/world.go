package modules

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
)

// Observation is what the world connector reports on each poll.
type Observation struct {
	Inventory map[string]int
	Location  types.Location
}

// Connector is the game-world side of the agent.
type Connector interface {
	Observe(ctx context.Context) (Observation, error)
}

// Executor is implemented by connectors that can carry out decisions.
type Executor interface {
	Execute(ctx context.Context, d types.Decision) error
}

// World copies connector observations into the shared state. It is the
// only writer of AgentState.World.
type World struct {
	module.Base
	connector Connector
}

func NewWorld(cfg *config.Config, state *types.AgentState, connector Connector) (*World, error) {
	base, err := module.NewBase(NameWorld, cfg, state)
	if err != nil {
		return nil, err
	}
	if connector == nil {
		return nil, fmt.Errorf("world module needs a connector")
	}
	return &World{Base: base, connector: connector}, nil
}

func (w *World) Update(ctx context.Context) error {
	obs, err := w.connector.Observe(ctx)
	if err != nil {
		return fmt.Errorf("observing world: %w", err)
	}
	w.State().World.Set(obs.Inventory, obs.Location)
	return nil
}

func (w *World) OnDecision(ctx context.Context, d types.Decision) error {
	exec, ok := w.connector.(Executor)
	if !ok {
		return nil
	}
	return exec.Execute(ctx, d)
}

// InMemoryConnector is a connector with no game behind it. "move" sets the
// location from x/y/z parameters and "collect" adds count of item to the
// inventory; every other action is only recorded.
type InMemoryConnector struct {
	mu       sync.Mutex
	obs      Observation
	executed []types.Decision
}

func NewInMemoryConnector(inventory map[string]int, location types.Location) *InMemoryConnector {
	if inventory == nil {
		inventory = map[string]int{}
	}
	return &InMemoryConnector{obs: Observation{Inventory: maps.Clone(inventory), Location: location}}
}

func (c *InMemoryConnector) Observe(context.Context) (Observation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Observation{Inventory: maps.Clone(c.obs.Inventory), Location: c.obs.Location}, nil
}

func (c *InMemoryConnector) Execute(_ context.Context, d types.Decision) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.executed = append(c.executed, d)

	switch d.Action {
	case "move":
		c.obs.Location = types.Location{
			X: number(d.Parameters["x"], c.obs.Location.X),
			Y: number(d.Parameters["y"], c.obs.Location.Y),
			Z: number(d.Parameters["z"], c.obs.Location.Z),
		}
	case "collect":
		item, _ := d.Parameters["item"].(string)
		if item == "" {
			return fmt.Errorf("collect without item")
		}
		c.obs.Inventory[item] += int(number(d.Parameters["count"], 1))
	}
	return nil
}

// Executed returns every decision the connector received, oldest first.
func (c *InMemoryConnector) Executed() []types.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Decision{}, c.executed...)
}

func number(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}
