package agent

import (
	"fmt"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/coordinator"
	"github.com/mudler/LocalCraft/core/journal"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/LocalCraft/pkg/clock"
	"github.com/robfig/cron/v3"
)

type Option func(*options) error

// ModuleFactory builds one module against the shared state.
type ModuleFactory func(cfg *config.Config, state *types.AgentState) (module.Module, error)

type options struct {
	factories          []ModuleFactory
	source             coordinator.DecisionSource
	clock              clock.Clock
	state              *types.AgentState
	journal            journal.Store
	checkpointSchedule string
}

func defaultOptions() *options {
	return &options{
		clock:              clock.Real(),
		checkpointSchedule: "@every 1m",
	}
}

func newOptions(opts ...Option) (*options, error) {
	options := defaultOptions()
	for _, o := range opts {
		if err := o(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// WithModules appends module factories. Modules are registered, started and
// broadcast to in the order given here.
func WithModules(factories ...ModuleFactory) Option {
	return func(o *options) error {
		o.factories = append(o.factories, factories...)
		return nil
	}
}

// WithDecisionSource sets what the coordinator asks for decisions.
// Without it the agent idles.
func WithDecisionSource(source coordinator.DecisionSource) Option {
	return func(o *options) error {
		o.source = source
		return nil
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithState shares an existing state instead of creating a fresh one.
func WithState(state *types.AgentState) Option {
	return func(o *options) error {
		o.state = state
		return nil
	}
}

func WithJournal(store journal.Store) Option {
	return func(o *options) error {
		o.journal = store
		return nil
	}
}

// WithCheckpointSchedule sets the cron spec used to checkpoint the journal.
func WithCheckpointSchedule(spec string) Option {
	return func(o *options) error {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid checkpoint schedule %q: %w", spec, err)
		}
		o.checkpointSchedule = spec
		return nil
	}
}
