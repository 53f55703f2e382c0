package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by schedulers and the coordinator.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C() until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Manual is a Clock that only moves when Advance is called.
// Ticks are delivered synchronously: Advance blocks until every due tick
// has been received by its reader, or the ticker has been stopped.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTicker{
		clock:  m,
		period: d,
		next:   m.now.Add(d),
		c:      make(chan time.Time),
		done:   make(chan struct{}),
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Tickers returns the number of live tickers.
func (m *Manual) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

// Advance moves the clock forward by d, firing every ticker whose deadline
// falls within the window in chronological order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due *manualTicker
		for _, t := range m.tickers {
			if t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		at := due.next
		m.now = at
		due.next = at.Add(due.period)
		m.mu.Unlock()

		select {
		case due.c <- at:
		case <-due.done:
		}
	}
}

func (m *Manual) remove(t *manualTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.tickers {
		if other == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			return
		}
	}
}

type manualTicker struct {
	clock  *Manual
	period time.Duration
	next   time.Time
	c      chan time.Time
	done   chan struct{}
	once   sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.once.Do(func() {
		close(t.done)
		t.clock.remove(t)
	})
}
