package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
}

// TraceEvent is one lifecycle event in the timeline.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Frame uint64 `json:"frame"`
	Kind  string `json:"kind"`
	Node  string `json:"node"`
}

// TraceSnapshot summarizes one journaled snapshot.
type TraceSnapshot struct {
	Tick    uint64 `json:"tick"`
	Objects int    `json:"objects"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID     string          `json:"run_id"`
	FixedStep string          `json:"fixed_step"`
	Version   string          `json:"engine_version"`
	Timeline  []TraceEvent    `json:"timeline"`
	Snapshots []TraceSnapshot `json:"snapshots"`
}

// RenderText implements TextRenderer.
func (r TraceResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Trace for Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Fixed step: %s, engine %s\n", r.FixedStep, r.Version)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Lifecycle:")
	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, e := range r.Timeline {
		fmt.Fprintf(w, "  [%d] frame %d: %s %s\n", e.Seq, e.Frame, e.Kind, e.Node)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Snapshots:")
	if len(r.Snapshots) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range r.Snapshots {
		fmt.Fprintf(w, "  tick %d: %d objects\n", s.Tick, s.Objects)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Summary: %d events, %d snapshots\n", len(r.Timeline), len(r.Snapshots))
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a journaled run",
		Long: `Print the lifecycle events and snapshots recorded for a run.

Events are listed in sequence order and snapshots in tick order.
Without --run, the most recent run is shown.

Examples:
  lockstep trace --db ./lockstep.db
  lockstep trace --db ./lockstep.db --run 0190f5c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (default: latest)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening creates a missing file, so check first.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	runs, err := j.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if len(runs) == 0 {
		return NewExitError(ExitCommandError, "journal has no runs")
	}

	info := runs[len(runs)-1]
	if opts.RunID != "" {
		found := false
		for _, r := range runs {
			if r.ID == opts.RunID {
				info, found = r, true
				break
			}
		}
		if !found {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
	}

	events, err := j.Lifecycle(ctx, info.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read lifecycle", err)
	}
	snaps, err := j.Snapshots(ctx, info.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshots", err)
	}

	result := TraceResult{
		RunID:     info.ID,
		FixedStep: info.FixedStep.String(),
		Version:   info.Version,
		Timeline:  make([]TraceEvent, 0, len(events)),
		Snapshots: make([]TraceSnapshot, 0, len(snaps)),
	}
	for _, e := range events {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:   e.Seq,
			Frame: e.Frame,
			Kind:  e.Kind,
			Node:  e.Node,
		})
	}
	for _, s := range snaps {
		result.Snapshots = append(result.Snapshots, TraceSnapshot{Tick: s.Tick, Objects: s.Objects})
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(result)
}
