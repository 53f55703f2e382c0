package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/coordinator"
	"github.com/mudler/LocalCraft/core/journal"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/xlog"
	"github.com/robfig/cron/v3"
)

// Agent owns the shared state, the module registry and the coordinator.
type Agent struct {
	sync.Mutex
	options     *options
	state       *types.AgentState
	modules     []module.Module
	schedulers  []*module.Scheduler
	coordinator *coordinator.Coordinator
	cron        *cron.Cron
	running     bool
}

// New builds every module and the coordinator and links them. Any
// module without a configuration entry makes New fail with a
// *config.ConfigError (use errors.As).
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to set options: %w", err)
	}

	state := options.state
	if state == nil {
		state = types.NewAgentState()
	}

	if options.journal != nil {
		snapshot, err := options.journal.Load()
		if err != nil {
			return nil, fmt.Errorf("loading journal: %w", err)
		}
		if n := journal.Restore(state, snapshot); n > 0 {
			xlog.Info("Decisions restored from journal", "count", n)
		}
	}

	a := &Agent{
		options: options,
		state:   state,
	}

	names := map[string]struct{}{coordinator.Name: {}}
	for _, factory := range options.factories {
		m, err := factory(cfg, state)
		if err != nil {
			return nil, fmt.Errorf("building module: %w", err)
		}
		if _, dup := names[m.Name()]; dup {
			return nil, fmt.Errorf("duplicate module name %q", m.Name())
		}
		names[m.Name()] = struct{}{}

		a.modules = append(a.modules, m)
		a.schedulers = append(a.schedulers, module.NewScheduler(m, module.WithClock(options.clock)))
	}

	a.coordinator, err = coordinator.New(cfg, state, options.source, coordinator.WithClock(options.clock))
	if err != nil {
		return nil, err
	}
	if err := a.coordinator.RegisterModules(a.modules); err != nil {
		return nil, err
	}

	return a, nil
}

// Start starts every module, then the coordinator, then the checkpoint job.
func (a *Agent) Start(ctx context.Context) error {
	a.Lock()
	defer a.Unlock()

	if a.running {
		xlog.Warn("Agent already running")
		return module.ErrAlreadyRunning
	}

	for i, s := range a.schedulers {
		if err := s.Start(ctx); err != nil {
			return errors.Join(err, a.rollback(ctx, a.schedulers[:i]))
		}
	}
	if err := a.coordinator.Start(ctx); err != nil {
		return errors.Join(err, a.rollback(ctx, a.schedulers))
	}

	if a.options.journal != nil {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(a.options.checkpointSchedule, a.checkpoint); err != nil {
			xlog.Error("Failed to schedule checkpoints", "error", err)
		}
		a.cron.Start()
	}

	a.running = true
	xlog.Info("Agent started", "modules", len(a.modules))
	return nil
}

// rollback stops started schedulers in reverse order after a failed Start.
func (a *Agent) rollback(ctx context.Context, started []*module.Scheduler) error {
	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop stops the coordinator first so no broadcast reaches a stopping
// module, then the modules in reverse order, then writes a last checkpoint.
// When a module does not drain before ctx expires the agent stays running
// and Stop can be called again to wait for it.
func (a *Agent) Stop(ctx context.Context) error {
	a.Lock()
	defer a.Unlock()

	if !a.running {
		xlog.Warn("Agent not running")
		return module.ErrNotRunning
	}

	if a.cron != nil {
		<-a.cron.Stop().Done()
		a.cron = nil
	}

	var errs []error
	if err := a.coordinator.Stop(ctx); err != nil && !errors.Is(err, module.ErrNotRunning) {
		errs = append(errs, err)
	}
	for i := len(a.schedulers) - 1; i >= 0; i-- {
		if err := a.schedulers[i].Stop(ctx); err != nil && !errors.Is(err, module.ErrNotRunning) {
			errs = append(errs, err)
		}
	}

	drained := len(errs) == 0

	if err := a.Checkpoint(); err != nil {
		errs = append(errs, err)
	}

	if !drained {
		xlog.Warn("Agent did not stop cleanly", "error", errors.Join(errs...))
		return errors.Join(errs...)
	}

	a.running = false
	xlog.Info("Agent stopped", "decisions", a.state.Decisions.Len())
	return errors.Join(errs...)
}

func (a *Agent) Running() bool {
	a.Lock()
	defer a.Unlock()
	return a.running
}

// Checkpoint writes the journal now. It is a no-op without a journal.
func (a *Agent) Checkpoint() error {
	if a.options.journal == nil {
		return nil
	}
	if err := a.options.journal.Save(journal.Capture(a.state, a.options.clock.Now())); err != nil {
		return fmt.Errorf("saving journal: %w", err)
	}
	return nil
}

func (a *Agent) checkpoint() {
	if err := a.Checkpoint(); err != nil {
		xlog.Error("Checkpoint failed", "error", err)
	}
}

func (a *Agent) State() *types.AgentState {
	return a.state
}

func (a *Agent) Coordinator() *coordinator.Coordinator {
	return a.coordinator
}

// Modules returns the registry in order.
func (a *Agent) Modules() []module.Module {
	return append([]module.Module{}, a.modules...)
}

// Scheduler returns the scheduler of the named module, or nil.
func (a *Agent) Scheduler(name string) *module.Scheduler {
	if name == coordinator.Name {
		return nil
	}
	for _, s := range a.schedulers {
		if s.Module().Name() == name {
			return s
		}
	}
	return nil
}
