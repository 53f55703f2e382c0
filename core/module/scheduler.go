package module

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mudler/LocalCraft/pkg/clock"
	"github.com/mudler/xlog"
)

// Status is a position in the module state machine:
// Stopped -> Start -> Running -> Stop -> Stopping -> Stopped.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Stats counts what a scheduler did since it was created.
type Stats struct {
	Ticks    int64
	Failures int64
}

// Scheduler drives one module's repeating timer. Ticks of one module never
// overlap; failures in Update are logged and counted but never stop the loop.
type Scheduler struct {
	module Module
	clock  clock.Clock

	mu     sync.Mutex
	status Status
	stop   chan struct{}
	done   chan struct{}

	ticks    atomic.Int64
	failures atomic.Int64
}

type SchedulerOption func(*Scheduler)

// WithClock replaces the real clock, mostly for tests.
func WithClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// NewScheduler creates a stopped scheduler for m.
func NewScheduler(m Module, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		module: m,
		clock:  clock.Real(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Module returns the scheduled module.
func (s *Scheduler) Module() Module {
	return s.module
}

// Start begins ticking. Calling it on a scheduler that is not stopped is a
// no-op: a warning is logged and ErrAlreadyRunning returned.
// ctx is handed to every Update call; cancelling it does not stop the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusStopped {
		xlog.Warn("Module already running", "module", s.module.Name(), "status", s.status.String())
		return ErrAlreadyRunning
	}

	// The ticker is created before returning so no interval elapses unobserved.
	ticker := s.clock.NewTicker(s.module.UpdateInterval())
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.status = StatusRunning

	go s.run(ctx, ticker, s.stop, s.done)
	xlog.Info("Module started", "module", s.module.Name(), "update_interval", s.module.UpdateInterval())
	return nil
}

// Stop asks the loop to exit and waits until it has. An in-flight Update
// always completes first; once Stop returns nil no further Update runs.
// If ctx expires while waiting, the loop still exits on its own and a
// later Stop waits for it again.
// Stop must not be called from the module's own Update.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.status {
	case StatusStopped:
		s.mu.Unlock()
		xlog.Warn("Module not running", "module", s.module.Name())
		return ErrNotRunning
	case StatusRunning:
		s.status = StatusStopping
		close(s.stop)
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for module %s to stop: %w", s.module.Name(), ctx.Err())
	}

	xlog.Info("Module stopped", "module", s.module.Name())
	return nil
}

// Running reports whether the scheduler is in the Running state.
func (s *Scheduler) Running() bool {
	return s.Status() == StatusRunning
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:    s.ticks.Load(),
		Failures: s.failures.Load(),
	}
}

func (s *Scheduler) run(ctx context.Context, ticker clock.Ticker, stop, done chan struct{}) {
	defer func() {
		ticker.Stop()
		s.mu.Lock()
		s.status = StatusStopped
		s.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			// A tick and a stop may be ready together; stop wins.
			select {
			case <-stop:
				return
			default:
			}
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.ticks.Add(1)
	err := Safely(func() error {
		return s.module.Update(ctx)
	})
	if err != nil {
		s.failures.Add(1)
		xlog.Error("Module update failed", "module", s.module.Name(), "error", err)
	}
}
