package module

import (
	"context"
	"time"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/types"
)

// Module is an independently scheduled unit of work.
// Update runs once per tick on the module's own scheduler; OnDecision is
// called by the coordinator's broadcast and may land between two ticks.
type Module interface {
	Name() string
	UpdateInterval() time.Duration
	Update(ctx context.Context) error
	OnDecision(ctx context.Context, decision types.Decision) error
}

// Coordinator is what a registered module sees of the coordinator.
type Coordinator interface {
	Name() string
	LastDecision() (types.Decision, bool)
}

// CoordinatorAware modules receive a back reference when registered.
type CoordinatorAware interface {
	SetCoordinator(c Coordinator)
}

// Base carries the plumbing every module shares. Embed it and implement
// Update and OnDecision.
type Base struct {
	name        string
	interval    time.Duration
	config      config.ModuleConfig
	state       *types.AgentState
	coordinator Coordinator
}

// NewBase looks up name in cfg. It fails with a *config.ConfigError when
// there is no entry for the module.
func NewBase(name string, cfg *config.Config, state *types.AgentState) (Base, error) {
	mc, err := cfg.Module(name)
	if err != nil {
		return Base{}, err
	}
	return Base{
		name:     name,
		interval: mc.Interval(),
		config:   mc,
		state:    state,
	}, nil
}

func (b *Base) Name() string { return b.name }

func (b *Base) UpdateInterval() time.Duration { return b.interval }

// Config returns the module's configuration section.
func (b *Base) Config() config.ModuleConfig { return b.config }

// State returns the shared agent state.
func (b *Base) State() *types.AgentState { return b.state }

func (b *Base) SetCoordinator(c Coordinator) { b.coordinator = c }

// Coordinator returns the coordinator this module was registered with, or nil.
func (b *Base) Coordinator() Coordinator { return b.coordinator }
