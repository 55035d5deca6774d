package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/app"
	"github.com/roach88/lockstep/internal/journal"
	"github.com/roach88/lockstep/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Frames   uint64
	Bodies   int
	Database string
}

// RunSummary is printed when a run ends.
type RunSummary struct {
	RunID          string `json:"run_id,omitempty"`
	Frames         uint64 `json:"frames"`
	Ticks          uint64 `json:"ticks"`
	DroppedTicks   uint64 `json:"dropped_ticks"`
	Overruns       uint64 `json:"overruns"`
	Bodies         int    `json:"bodies"`
	PhysicsUpdates uint64 `json:"physics_updates"`
}

// RenderText implements TextRenderer.
func (s RunSummary) RenderText(w io.Writer) {
	if s.RunID != "" {
		fmt.Fprintf(w, "Run:      %s\n", s.RunID)
	}
	fmt.Fprintf(w, "Frames:   %d\n", s.Frames)
	fmt.Fprintf(w, "Ticks:    %d (dropped %d, overruns %d)\n", s.Ticks, s.DroppedTicks, s.Overruns)
	fmt.Fprintf(w, "Bodies:   %d\n", s.Bodies)
	fmt.Fprintf(w, "Physics:  %d updates\n", s.PhysicsUpdates)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo world",
		Long: `Run the demo world: a field of kinematic bodies stepped by the
fixed-timestep scheduler, with a persistent monitor state logging
scheduler stats.

With --db (or journal.path in the config), lifecycle events and
simulation snapshots are journaled to SQLite for the trace command.

Examples:
  lockstep run --frames 300
  lockstep run --bodies 64 --db ./lockstep.db --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Frames, "frames", 0, "frames to run (0 runs until interrupted)")
	cmd.Flags().IntVar(&opts.Bodies, "bodies", 16, "bodies to spawn")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (overrides journal.path)")

	return cmd
}

func runDemo(opts *RunOptions, cmd *cobra.Command) error {
	if opts.Bodies < 0 {
		return NewExitError(ExitCommandError, "--bodies must not be negative")
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	dbPath := cfg.Journal.Path
	if opts.Database != "" {
		dbPath = opts.Database
	}
	var j *journal.Journal
	if dbPath != "" {
		logger.Info("opening journal", "path", dbPath)
		j, err = journal.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
	}

	world := sim.NewKinematic()
	a, err := app.New(cfg, world, j, app.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build app", err)
	}
	field, mon := a.LoadDemo(world, opts.Bodies)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := a.Run(ctx, opts.Frames)

	summary := RunSummary{
		RunID:          a.RunID(),
		Frames:         a.Director().Frame(),
		Bodies:         field.Bodies(),
		PhysicsUpdates: mon.PhysicsUpdates(),
	}
	closeErr := a.Close()
	st := a.Scheduler().Stats()
	summary.Ticks = st.Ticks
	summary.DroppedTicks = st.DroppedTicks
	summary.Overruns = st.Overruns

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	if closeErr != nil {
		return WrapExitError(ExitFailure, "shutdown failed", closeErr)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(summary)
}
