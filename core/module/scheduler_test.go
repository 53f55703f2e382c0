package module_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/module"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/LocalCraft/pkg/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testConfig = `
modules:
  fast:
    update_interval: 100
  slow:
    update_interval: 200
`

type countingModule struct {
	module.Base
	updates atomic.Int64
	fail    bool
	panics  bool
	release chan struct{}
}

func (m *countingModule) Update(context.Context) error {
	m.updates.Add(1)
	if m.release != nil {
		<-m.release
	}
	if m.panics {
		panic("boom")
	}
	if m.fail {
		return errors.New("update failed")
	}
	return nil
}

func (m *countingModule) OnDecision(context.Context, types.Decision) error {
	return nil
}

func newCounting(name string, cfg *config.Config) *countingModule {
	base, err := module.NewBase(name, cfg, types.NewAgentState())
	Expect(err).NotTo(HaveOccurred())
	return &countingModule{Base: base}
}

var _ = Describe("Base", func() {
	It("captures the configured interval", func() {
		cfg, err := config.Parse([]byte(testConfig))
		Expect(err).NotTo(HaveOccurred())

		m := newCounting("slow", cfg)
		Expect(m.Name()).To(Equal("slow"))
		Expect(m.UpdateInterval()).To(Equal(200 * time.Millisecond))
		Expect(m.Coordinator()).To(BeNil())
	})

	It("fails with a configuration error when the module has no entry", func() {
		cfg, err := config.Parse([]byte(testConfig))
		Expect(err).NotTo(HaveOccurred())

		_, err = module.NewBase("missing", cfg, types.NewAgentState())
		var cfgErr *config.ConfigError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Module).To(Equal("missing"))
	})
})

var _ = Describe("Scheduler", func() {
	var (
		ctx  context.Context
		cfg  *config.Config
		clk  *clock.Manual
		fast *countingModule
		slow *countingModule
		sf   *module.Scheduler
		ss   *module.Scheduler
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		cfg, err = config.Parse([]byte(testConfig))
		Expect(err).NotTo(HaveOccurred())

		clk = clock.NewManual(time.Unix(0, 0))
		fast = newCounting("fast", cfg)
		slow = newCounting("slow", cfg)
		sf = module.NewScheduler(fast, module.WithClock(clk))
		ss = module.NewScheduler(slow, module.WithClock(clk))
	})

	AfterEach(func() {
		for _, s := range []*module.Scheduler{sf, ss} {
			if s.Running() {
				Expect(s.Stop(ctx)).To(Succeed())
			}
		}
	})

	It("starts stopped", func() {
		Expect(sf.Status()).To(Equal(module.StatusStopped))
		Expect(sf.Running()).To(BeFalse())
	})

	It("ticks each module independently of the others", func() {
		Expect(sf.Start(ctx)).To(Succeed())
		Expect(ss.Start(ctx)).To(Succeed())

		clk.Advance(200 * time.Millisecond)

		Eventually(fast.updates.Load).Should(BeEquivalentTo(2))
		Eventually(slow.updates.Load).Should(BeEquivalentTo(1))
		Consistently(fast.updates.Load, "50ms").Should(BeEquivalentTo(2))
		Consistently(slow.updates.Load, "50ms").Should(BeEquivalentTo(1))
	})

	It("ignores a second Start with exactly one warning", func() {
		logs := captureWarnings()

		Expect(sf.Start(ctx)).To(Succeed())
		Expect(sf.Start(ctx)).To(MatchError(module.ErrAlreadyRunning))
		Eventually(logged(logs, "Module already running")).Should(Equal(1))
		Consistently(logged(logs, "Module already running"), "50ms").Should(Equal(1))
		Expect(sf.Running()).To(BeTrue())
		Expect(clk.Tickers()).To(Equal(1))

		clk.Advance(100 * time.Millisecond)
		Eventually(fast.updates.Load).Should(BeEquivalentTo(1))
		Consistently(fast.updates.Load, "50ms").Should(BeEquivalentTo(1))
	})

	It("stops ticking once Stop returns and warns on a second Stop", func() {
		logs := captureWarnings()

		Expect(sf.Start(ctx)).To(Succeed())
		clk.Advance(100 * time.Millisecond)
		Eventually(fast.updates.Load).Should(BeEquivalentTo(1))

		Expect(sf.Stop(ctx)).To(Succeed())
		Expect(sf.Running()).To(BeFalse())
		Expect(sf.Status()).To(Equal(module.StatusStopped))
		Consistently(logged(logs, "Module not running"), "50ms").Should(BeZero())
		Expect(sf.Stop(ctx)).To(MatchError(module.ErrNotRunning))
		Eventually(logged(logs, "Module not running")).Should(Equal(1))
		Consistently(logged(logs, "Module not running"), "50ms").Should(Equal(1))

		clk.Advance(time.Second)
		Consistently(fast.updates.Load, "50ms").Should(BeEquivalentTo(1))
		Expect(clk.Tickers()).To(Equal(0))
	})

	It("warns when stopping a module that never started", func() {
		Expect(sf.Stop(ctx)).To(MatchError(module.ErrNotRunning))
	})

	It("can be restarted after a stop", func() {
		Expect(sf.Start(ctx)).To(Succeed())
		Expect(sf.Stop(ctx)).To(Succeed())
		Expect(sf.Start(ctx)).To(Succeed())

		clk.Advance(100 * time.Millisecond)
		Eventually(fast.updates.Load).Should(BeEquivalentTo(1))
	})

	It("keeps ticking when every update fails", func() {
		fast.fail = true
		Expect(sf.Start(ctx)).To(Succeed())

		for i := 0; i < 5; i++ {
			clk.Advance(100 * time.Millisecond)
		}

		Eventually(func() module.Stats { return sf.Stats() }).Should(Equal(module.Stats{Ticks: 5, Failures: 5}))
		Expect(sf.Running()).To(BeTrue())
	})

	It("survives a panicking update", func() {
		fast.panics = true
		Expect(sf.Start(ctx)).To(Succeed())

		clk.Advance(300 * time.Millisecond)

		Eventually(func() int64 { return sf.Stats().Failures }).Should(BeEquivalentTo(3))
		Expect(sf.Running()).To(BeTrue())
	})

	It("does not let one failing module affect another", func() {
		fast.fail = true
		Expect(sf.Start(ctx)).To(Succeed())
		Expect(ss.Start(ctx)).To(Succeed())

		clk.Advance(400 * time.Millisecond)

		Eventually(func() module.Stats { return ss.Stats() }).Should(Equal(module.Stats{Ticks: 2}))
		Eventually(func() int64 { return sf.Stats().Failures }).Should(BeEquivalentTo(4))
	})

	It("waits for the in-flight update before Stop returns", func() {
		fast.release = make(chan struct{})
		Expect(sf.Start(ctx)).To(Succeed())
		clk.Advance(100 * time.Millisecond)
		Eventually(fast.updates.Load).Should(BeEquivalentTo(1))

		stopped := make(chan error, 1)
		go func() { stopped <- sf.Stop(ctx) }()

		Consistently(stopped, "50ms").ShouldNot(Receive())
		Expect(sf.Status()).To(Equal(module.StatusStopping))
		Expect(sf.Start(ctx)).To(MatchError(module.ErrAlreadyRunning))

		close(fast.release)
		Eventually(stopped).Should(Receive(BeNil()))
		Expect(sf.Status()).To(Equal(module.StatusStopped))
		Expect(fast.updates.Load()).To(BeEquivalentTo(1))
	})

	It("gives up waiting when the stop context expires", func() {
		fast.release = make(chan struct{})
		Expect(sf.Start(ctx)).To(Succeed())
		clk.Advance(100 * time.Millisecond)
		Eventually(fast.updates.Load).Should(BeEquivalentTo(1))

		stopCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := sf.Stop(stopCtx)
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())

		close(fast.release)
		Eventually(sf.Status).Should(Equal(module.StatusStopped))
	})

	It("lets a later Stop wait for a drain that outlived the first", func() {
		logs := captureWarnings()
		fast.release = make(chan struct{})
		Expect(sf.Start(ctx)).To(Succeed())
		clk.Advance(100 * time.Millisecond)
		Eventually(fast.updates.Load).Should(BeEquivalentTo(1))

		stopCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		Expect(sf.Stop(stopCtx)).To(MatchError(context.DeadlineExceeded))

		stopped := make(chan error, 1)
		go func() { stopped <- sf.Stop(ctx) }()
		Consistently(stopped, "50ms").ShouldNot(Receive())

		close(fast.release)
		Eventually(stopped).Should(Receive(BeNil()))
		Expect(sf.Status()).To(Equal(module.StatusStopped))
		Consistently(logged(logs, "Module not running"), "50ms").Should(BeZero())
	})
})
