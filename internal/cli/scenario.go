package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/config"
	"github.com/roach88/lockstep/internal/harness"
	"github.com/roach88/lockstep/internal/roles"
)

// ScenarioResult is the output of the scenario command.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Passed bool     `json:"passed"`
	Trace  []string `json:"trace"`
	Errors []string `json:"errors,omitempty"`
}

// RenderText implements TextRenderer.
func (r ScenarioResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "Scenario: %s\n", r.Name)
	for _, line := range r.Trace {
		fmt.Fprintf(w, "  %s\n", line)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  expectation failed: %s\n", e)
	}
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario <file.yaml>",
		Short: "Run a lifecycle scenario",
		Long: `Run a YAML lifecycle scenario against a fresh state stack and print
its trace. Steps start with ">", director events with "*".

Exits 1 when the scenario's expectations do not hold.

Example:
  lockstep scenario internal/harness/testdata/scenarios/push_push_pop.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runScenario(opts *RootOptions, path string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	s, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	logger.Debug("scenario loaded", "name", s.Name, "steps", len(s.Steps))

	result, err := runHarness(cfg, s, logger)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario aborted", err)
	}

	out := ScenarioResult{
		Name:   result.Name,
		Passed: result.Passed(),
		Trace:  result.Trace,
		Errors: result.Errors,
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if !out.Passed {
		if err := f.Failure("scenario expectations failed", out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", s.Name))
	}
	return f.Success(out)
}

// runHarness runs s with role checks set from the config. A contract
// panic raised under debug.assertions is returned as an error.
func runHarness(cfg *config.Config, s *harness.Scenario, logger *slog.Logger) (result *harness.Result, err error) {
	roles.SetChecks(cfg.Debug.Assertions)
	defer roles.SetChecks(false)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return harness.Run(s, harness.WithLogger(logger))
}
