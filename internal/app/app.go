// Package app wires a scheduler, a director and an optional journal into
// a runnable main loop.
//
// The goroutine that calls New becomes the main goroutine: Run and Close
// must be called from it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/roach88/lockstep/internal/config"
	"github.com/roach88/lockstep/internal/director"
	"github.com/roach88/lockstep/internal/journal"
	"github.com/roach88/lockstep/internal/roles"
	"github.com/roach88/lockstep/internal/scheduler"
	"github.com/roach88/lockstep/internal/sim"
)

// App owns the main loop.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	clk     clock.Clock
	sched   *scheduler.Scheduler
	dir     *director.Director
	journal *journal.Journal
	run     *journal.Run
	leave   func()

	// main goroutine only
	pending  []director.Event
	lastTick uint64
	closed   bool
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger for the app and everything it builds.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the time source for the frame loop and the scheduler.
func WithClock(c clock.Clock) Option {
	return func(a *App) {
		a.clk = c
	}
}

// New builds the scheduler and director for backend. j may be nil, in
// which case nothing is journaled. The scheduler does not start until the
// first Run.
func New(cfg *config.Config, backend sim.Backend, j *journal.Journal, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		cfg:     *cfg,
		logger:  slog.Default(),
		clk:     clock.New(),
		journal: j,
	}
	for _, opt := range opts {
		opt(a)
	}

	roles.SetChecks(cfg.Debug.Assertions)
	a.leave = roles.Enter(roles.Main)

	a.sched = scheduler.New(backend,
		scheduler.WithFixedStep(cfg.Scheduler.FixedStep),
		scheduler.WithMaxLagTicks(cfg.Scheduler.MaxLagTicks),
		scheduler.WithSpinThreshold(cfg.Scheduler.SpinThreshold),
		scheduler.WithClock(a.clk),
		scheduler.WithLogger(a.logger),
	)
	a.dir = director.New(
		director.WithLogger(a.logger),
		director.WithObserver(a.observe),
	)

	dt := a.sched.FixedStep()
	if err := a.sched.Persist(func(*scheduler.Scheduler) {
		a.dir.PhysicsUpdate(dt)
	}); err != nil {
		a.leave()
		return nil, fmt.Errorf("app: %w", err)
	}
	return a, nil
}

// Director returns the state stack.
func (a *App) Director() *director.Director { return a.dir }

// Scheduler returns the simulation scheduler.
func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }

// RunID returns the journal run id, or "" when not journaling or before
// the first Run.
func (a *App) RunID() string {
	if a.run == nil {
		return ""
	}
	return a.run.Info().ID
}

func (a *App) observe(e director.Event) {
	a.pending = append(a.pending, e)
}

func (a *App) start(ctx context.Context) error {
	if err := a.sched.Init(ctx); err != nil {
		return err
	}
	if a.journal == nil {
		return nil
	}
	run, err := a.journal.StartRun(ctx, a.clk.Now(), a.sched.FixedStep())
	if err != nil {
		return errors.Join(fmt.Errorf("app: %w", err), a.sched.Shutdown())
	}
	a.run = run
	a.logger.Info("journal run started", "run_id", run.Info().ID)
	return nil
}

// Run drives the main loop at the configured frame interval. It returns
// after frames frames, or when ctx is done with ctx's error. frames == 0
// runs until ctx is done. The first call starts the scheduler.
func (a *App) Run(ctx context.Context, frames uint64) error {
	roles.Assert(roles.Main, "app.Run")
	if a.closed {
		return errors.New("app: closed")
	}
	if a.sched.State() == scheduler.Uninitialized {
		if err := a.start(ctx); err != nil {
			return err
		}
	}

	interval := a.cfg.Frame.Interval
	ticker := a.clk.Ticker(interval)
	defer ticker.Stop()

	for n := uint64(1); ; n++ {
		if err := a.frame(ctx); err != nil {
			return err
		}
		if frames != 0 && n >= frames {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// frame runs one director update and journals what changed.
func (a *App) frame(ctx context.Context) error {
	a.dir.Update(a.cfg.Frame.Interval)
	if err := a.flush(ctx); err != nil {
		return err
	}

	snap := a.sched.CurrentSnapshot()
	if snap.Tick <= a.lastTick {
		return nil
	}
	a.lastTick = snap.Tick
	if a.run == nil {
		return nil
	}
	if err := a.run.RecordSnapshot(ctx, &snap); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}

// flush writes buffered director events to the journal.
func (a *App) flush(ctx context.Context) error {
	events := a.pending
	a.pending = a.pending[:0]
	if a.run == nil {
		return nil
	}
	for _, e := range events {
		if _, err := a.run.RecordEvent(ctx, e.Frame, string(e.Kind), e.Node); err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	return nil
}

// Close exits every state, journals the resulting events and shuts the
// scheduler down. Calling Close again is a no-op.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	defer a.leave()

	a.dir.Clear()
	flushErr := a.flush(context.Background())

	err := a.sched.Shutdown()
	if errors.Is(err, scheduler.ErrAlreadyShutdown) {
		err = nil
	}
	return errors.Join(flushErr, err)
}
