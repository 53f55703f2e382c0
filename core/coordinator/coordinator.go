package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/LocalCraft/pkg/clock"
	"github.com/mudler/xlog"
)

// Name is the configuration key of the coordinator.
const Name = "coordinator"

var ErrRegisterWhileRunning = errors.New("cannot register modules while the coordinator is running")

// RecipientError is a broadcast failure of a single module.
type RecipientError struct {
	Module string
	Err    error
}

func (e RecipientError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

// Coordinator periodically snapshots the shared state, reduces it,
// asks its DecisionSource for a decision, records it and broadcasts it to
// every registered module in registry order.
type Coordinator struct {
	module.Base

	source    DecisionSource
	clock     clock.Clock
	scheduler *module.Scheduler

	mu      sync.RWMutex
	modules []module.Module

	// serializes cycles triggered by the ticker and by RunCycle callers
	cycle sync.Mutex
}

type Option func(*Coordinator)

func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// New builds a stopped coordinator. cfg must have a "coordinator" entry.
// A nil source means the coordinator always idles.
func New(cfg *config.Config, state *types.AgentState, source DecisionSource, opts ...Option) (*Coordinator, error) {
	base, err := module.NewBase(Name, cfg, state)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		Base:   base,
		source: source,
		clock:  clock.Real(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.source == nil {
		c.source = IdleSource{Clock: c.clock}
	}
	c.scheduler = module.NewScheduler(c, module.WithClock(c.clock))
	return c, nil
}

// RegisterModules replaces the registry and hands every CoordinatorAware
// module a reference back to c. It must be called before Start.
func (c *Coordinator) RegisterModules(modules []module.Module) error {
	if c.scheduler.Status() != module.StatusStopped {
		xlog.Warn("Refusing to register modules on a running coordinator")
		return ErrRegisterWhileRunning
	}

	seen := map[string]struct{}{}
	for _, m := range modules {
		if _, dup := seen[m.Name()]; dup {
			return fmt.Errorf("duplicate module name %q", m.Name())
		}
		seen[m.Name()] = struct{}{}
	}

	c.mu.Lock()
	c.modules = append([]module.Module{}, modules...)
	c.mu.Unlock()

	for _, m := range modules {
		if aware, ok := m.(module.CoordinatorAware); ok {
			aware.SetCoordinator(c)
		}
	}
	xlog.Debug("Modules registered", "count", len(modules))
	return nil
}

// Modules returns the registry in order.
func (c *Coordinator) Modules() []module.Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]module.Module{}, c.modules...)
}

func (c *Coordinator) Start(ctx context.Context) error { return c.scheduler.Start(ctx) }
func (c *Coordinator) Stop(ctx context.Context) error  { return c.scheduler.Stop(ctx) }
func (c *Coordinator) Running() bool                   { return c.scheduler.Running() }
func (c *Coordinator) Status() module.Status           { return c.scheduler.Status() }
func (c *Coordinator) Stats() module.Stats             { return c.scheduler.Stats() }

// LastDecision returns the most recent decision in the shared state.
func (c *Coordinator) LastDecision() (types.Decision, bool) {
	return c.State().Decisions.Last()
}

// Update runs one decision cycle. It never fails.
func (c *Coordinator) Update(ctx context.Context) error {
	c.RunCycle(ctx)
	return nil
}

// OnDecision is a no-op: the coordinator is the origin of decisions.
func (c *Coordinator) OnDecision(context.Context, types.Decision) error {
	return nil
}

// RunCycle performs snapshot, reduction, decision and broadcast once and
// returns the decision that was emitted.
func (c *Coordinator) RunCycle(ctx context.Context) types.Decision {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	view := CreateBottleneckedState(c.State())

	decision := c.produce(ctx, view)
	c.State().Decisions.Append(decision)
	xlog.Debug("Decision made", "action", decision.Action, "reasoning", decision.Reasoning)

	c.Broadcast(ctx, decision)
	return decision
}

// Broadcast delivers d to every registered module, one after the other in
// registry order. A failing module is logged and skipped; the others still
// receive d.
func (c *Coordinator) Broadcast(ctx context.Context, d types.Decision) []RecipientError {
	var failures []RecipientError
	for _, m := range c.Modules() {
		err := module.Safely(func() error {
			return m.OnDecision(ctx, d)
		})
		if err != nil {
			xlog.Error("Module failed to handle decision", "module", m.Name(), "decision", d.ID, "error", err)
			failures = append(failures, RecipientError{Module: m.Name(), Err: err})
		}
	}
	return failures
}

func (c *Coordinator) produce(ctx context.Context, view types.BottleneckedState) types.Decision {
	var decision types.Decision
	err := module.Safely(func() error {
		var err error
		decision, err = c.source.ProduceDecision(ctx, view)
		return err
	})

	now := c.clock.Now()
	switch {
	case err != nil:
		xlog.Warn("Decision production failed, idling", "error", err)
		decision = types.IdleDecision(types.ReasoningNoDecision, now)
	case decision.Action == "":
		xlog.Warn("Decision source returned a decision without action, idling")
		decision = types.IdleDecision(types.ReasoningParseFailed, now)
	}

	if decision.ID == "" {
		decision.ID = uuid.New().String()
	}
	if decision.Parameters == nil {
		decision.Parameters = map[string]any{}
	}
	if decision.Timestamp.IsZero() {
		decision.Timestamp = now
	}
	if last, ok := c.State().Decisions.Last(); ok && decision.Timestamp.Before(last.Timestamp) {
		decision.Timestamp = last.Timestamp
	}
	return decision
}
