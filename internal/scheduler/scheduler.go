package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roach88/lockstep/internal/roles"
	"github.com/roach88/lockstep/internal/sim"
	"github.com/roach88/lockstep/internal/syncbuf"
)

const (
	// DefaultFixedStep is the simulation step, 60 ticks per second.
	DefaultFixedStep = time.Second / 60

	// DefaultMaxLagTicks is how far behind the scheduler may fall before
	// it drops ticks.
	DefaultMaxLagTicks = 5

	// DefaultSpinThreshold is the tail of each wait that is spun rather
	// than slept, to absorb timer wakeup jitter.
	DefaultSpinThreshold = 2 * time.Millisecond
)

// State is the scheduler lifecycle phase.
type State int32

const (
	Uninitialized State = iota
	Running
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting_down"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Stats are cumulative loop counters.
type Stats struct {
	Ticks            uint64
	DroppedTicks     uint64
	Overruns         uint64
	LastTickDuration time.Duration
}

// Scheduler owns the simulation goroutine.
type Scheduler struct {
	backend   sim.Backend
	clk       clock.Clock
	logger    *slog.Logger
	fixedStep time.Duration
	maxLag    int
	spin      time.Duration

	lifecycle sync.Mutex // serializes Init and Shutdown
	state     atomic.Int32
	loopID    atomic.Int64
	stop      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup

	snapshots *syncbuf.DoubleBuffer[sim.SnapshotSet]
	queue     *dispatchQueue
	pacer     *Pacer

	tick     atomic.Uint64
	dropped  atomic.Uint64
	overruns atomic.Uint64
	lastTick atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFixedStep sets the simulation step. Default: 1/60 s.
func WithFixedStep(d time.Duration) Option {
	return func(s *Scheduler) {
		s.fixedStep = d
	}
}

// WithMaxLagTicks sets the lag cap in ticks. Default: 5.
func WithMaxLagTicks(n int) Option {
	return func(s *Scheduler) {
		s.maxLag = n
	}
}

// WithSpinThreshold sets the spin-wait tail. Zero disables spinning
// beyond the deadline check.
func WithSpinThreshold(d time.Duration) Option {
	return func(s *Scheduler) {
		s.spin = d
	}
}

// WithClock replaces the wall clock, e.g. with clock.NewMock() in tests.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clk = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a scheduler for backend. It does nothing until Init.
func New(backend sim.Backend, opts ...Option) *Scheduler {
	s := &Scheduler{
		backend:   backend,
		clk:       clock.New(),
		logger:    slog.Default(),
		fixedStep: DefaultFixedStep,
		maxLag:    DefaultMaxLagTicks,
		spin:      DefaultSpinThreshold,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		queue:     newDispatchQueue(),
		snapshots: syncbuf.NewDoubleBuffer(func(set *sim.SnapshotSet) {
			*set = sim.NewSnapshotSet()
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init starts the backend and the scheduler goroutine.
//
// Failures are returned as *InitError and leave the scheduler
// Uninitialized; they are meant to be fatal for the caller.
func (s *Scheduler) Init(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch st := s.State(); st {
	case Uninitialized:
	case Running:
		return &InitError{Code: ErrCodeAlreadyInitialized, Message: "scheduler already running"}
	default:
		return &InitError{Code: ErrCodeStopped, Message: fmt.Sprintf("scheduler is %s", st)}
	}

	if s.fixedStep <= 0 || s.maxLag <= 0 || s.spin < 0 {
		return &InitError{
			Code:    ErrCodeInvalidConfig,
			Message: fmt.Sprintf("invalid timing (step=%s, max_lag=%d, spin=%s)", s.fixedStep, s.maxLag, s.spin),
		}
	}

	if err := s.backend.Init(ctx); err != nil {
		return &InitError{Code: ErrCodeBackendInit, Message: "simulation backend failed to initialize", Err: err}
	}

	s.pacer = NewPacer(s.fixedStep, s.maxLag)
	s.state.Store(int32(Running))

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("scheduler started",
		"fixed_step", s.fixedStep,
		"max_lag_ticks", s.maxLag,
	)
	return nil
}

// Dispatch queues fn to run once at the next tick boundary.
// Returns ErrNotRunning after shutdown began.
func (s *Scheduler) Dispatch(fn Task) error {
	return s.queue.push(fn, false)
}

// Persist queues fn to run on every tick until shutdown.
// Returns ErrNotRunning after shutdown began.
func (s *Scheduler) Persist(fn Task) error {
	return s.queue.push(fn, true)
}

// Pending returns the number of queued one-shot and persistent tasks.
func (s *Scheduler) Pending() (oneShot, persistent int) {
	return s.queue.len()
}

// CurrentSnapshot returns a copy of the most recently published SnapshotSet.
// Before the first tick it is empty with Tick 0.
func (s *Scheduler) CurrentSnapshot() sim.SnapshotSet {
	var out sim.SnapshotSet
	s.snapshots.Read(func(set *sim.SnapshotSet) {
		out = set.Clone()
	})
	return out
}

// ReadSnapshot calls fn with the current SnapshotSet without copying.
// The set must not be modified or retained after fn returns, and fn
// should be short: it delays the writer from reusing the slot.
func (s *Scheduler) ReadSnapshot(fn func(*sim.SnapshotSet)) {
	s.snapshots.Read(fn)
}

// Shutdown stops the loop, waits for the in-flight tick to finish and
// closes the backend. Pending one-shots are discarded.
func (s *Scheduler) Shutdown() error {
	if id := s.loopID.Load(); id != 0 && id == roles.CurrentID() {
		return ErrShutdownFromCallback
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch s.State() {
	case ShuttingDown, Stopped:
		return ErrAlreadyShutdown
	case Uninitialized:
		s.queue.close()
		s.state.Store(int32(Stopped))
		close(s.stop)
		close(s.done)
		return nil
	}

	s.state.Store(int32(ShuttingDown))
	dropped := s.queue.close()
	close(s.stop)
	s.wg.Wait()

	err := s.backend.Close()
	s.state.Store(int32(Stopped))
	close(s.done)

	s.logger.Info("scheduler stopped",
		"ticks", s.tick.Load(),
		"dropped_ticks", s.dropped.Load(),
		"discarded_tasks", dropped,
	)
	if err != nil {
		return fmt.Errorf("scheduler: close backend: %w", err)
	}
	return nil
}

// Done is closed once the scheduler has fully stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// State returns the lifecycle phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// FixedStep returns the simulation step.
func (s *Scheduler) FixedStep() time.Duration {
	return s.fixedStep
}

// Tick returns the number of the last published tick.
func (s *Scheduler) Tick() uint64 {
	return s.tick.Load()
}

// Stats returns the loop counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:            s.tick.Load(),
		DroppedTicks:     s.dropped.Load(),
		Overruns:         s.overruns.Load(),
		LastTickDuration: time.Duration(s.lastTick.Load()),
	}
}

// loop is the scheduler goroutine.
func (s *Scheduler) loop() {
	defer s.wg.Done()

	leave := roles.Enter(roles.Scheduler)
	defer leave()
	s.loopID.Store(roles.CurrentID())
	defer s.loopID.Store(0)

	s.pacer.Reset(s.clk.Now())
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		start := s.clk.Now()
		s.runTick()
		elapsed := s.clk.Since(start)
		s.lastTick.Store(int64(elapsed))
		if elapsed > s.fixedStep {
			s.overruns.Add(1)
			s.logger.Debug("tick exceeded budget",
				"tick", s.tick.Load(),
				"elapsed", elapsed,
				"budget", s.fixedStep,
			)
		}

		wait, dropped := s.pacer.Next(s.clk.Now())
		if dropped > 0 {
			s.dropped.Add(uint64(dropped))
			s.logger.Debug("scheduler behind, dropping ticks",
				"tick", s.tick.Load(),
				"dropped", dropped,
			)
		}
		if !s.waitUntil(s.pacer.Deadline(), wait) {
			return
		}
	}
}

// runTick executes one fixed step, publishes its snapshot and drains the
// dispatch queue.
func (s *Scheduler) runTick() {
	s.backend.Step(s.fixedStep)

	n := s.tick.Load() + 1
	set := s.snapshots.Write()
	set.Reset(n)
	s.backend.Transforms(set.Objects)
	s.snapshots.Publish()
	s.tick.Store(n)

	s.queue.run(s)
}

// waitUntil sleeps most of wait on a timer and spins the rest.
// Returns false if shutdown interrupted the wait.
func (s *Scheduler) waitUntil(deadline time.Time, wait time.Duration) bool {
	if wait > s.spin {
		t := s.clk.Timer(wait - s.spin)
		select {
		case <-t.C:
		case <-s.stop:
			t.Stop()
			return false
		}
	}

	for s.clk.Now().Before(deadline) {
		select {
		case <-s.stop:
			return false
		default:
		}
		runtime.Gosched()
	}
	return true
}
