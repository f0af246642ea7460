package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sebo/internal/harness"
	"github.com/roach88/sebo/internal/metrics"
	"github.com/roach88/sebo/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	MetricsOut string

	// IDGenerator overrides the journal run id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunOutput is the data payload printed by run and demo.
type RunOutput struct {
	Report    *harness.Report `json:"report"`
	Executed  int             `json:"executed"`
	Succeeded int             `json:"succeeded"`
	RunID     string          `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run a scenario against the Sebo server",
		Long: `Run one scenario file (.yaml, .yml or .cue) step by step and print
the per-step report.

Exit codes:
  0 - Every step met its expectation
  1 - The run halted or an expectation failed
  2 - Command error (unreadable scenario, journal unavailable, etc.)

Example:
  sebo run ./scenarios/sebo_rest.yaml
  sebo run ./scenarios/sebo_rpc.yaml --db ./runs.db --metrics-out ./metrics.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	addRunFlags(cmd, opts)

	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run into this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write run metrics in Prometheus text format to this file")
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	scenario, err := LoadScenarioFile(path)
	if err != nil {
		return commandError(formatter, err)
	}
	plan, err := scenario.Plan()
	if err != nil {
		_ = formatter.Error(ErrCodeScript, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid scenario", err)
	}

	return executePlan(opts, plan, formatter, cmd)
}

// executePlan runs plan, journals and measures it as requested, prints the
// report and maps the verdict to an exit code.
func executePlan(opts *RunOptions, plan *harness.Plan, formatter *OutputFormatter, cmd *cobra.Command) error {
	var extra []harness.RunnerOption
	var recorder *metrics.Recorder
	if opts.MetricsOut != "" {
		recorder = metrics.NewRecorder(nil)
		extra = append(extra, harness.WithObserver(recorder))
	}

	runner, inv := newRunner(opts.RootOptions, cmd, extra...)
	defer inv.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter.VerboseLog("Running %s (%d steps) against %s", plan.Name, len(plan.Steps), runner.BaseURL())

	result, runErr := runner.Run(ctx, plan.Operations())
	if runErr != nil && !harness.IsHalt(runErr) {
		if result == nil {
			_ = formatter.Error(ErrCodeScript, runErr.Error(), nil)
			return WrapExitError(ExitCommandError, "scenario cannot be run", runErr)
		}
		_ = formatter.Error(ErrCodeGeneric, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "run interrupted", runErr)
	}

	report := harness.Evaluate(plan, result)
	out := RunOutput{
		Report:    report,
		Executed:  len(result.Steps),
		Succeeded: result.Succeeded(),
	}

	if opts.Database != "" {
		id, err := journalRun(ctx, opts, plan.Name, runner.BaseURL(), result)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to journal run", err)
		}
		out.RunID = id
	}

	if recorder != nil {
		if err := writeMetrics(opts.MetricsOut, recorder); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if opts.Format == "json" {
		if err := outputRunJSON(formatter, out); err != nil {
			return err
		}
	} else {
		outputRunText(cmd, out)
	}

	if !report.Pass {
		if result.Fatal {
			return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s halted", plan.Name), runErr)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed: %d expectation(s) not met", plan.Name, len(report.Errors)))
	}
	return nil
}

func journalRun(ctx context.Context, opts *RunOptions, scenario, baseURL string, result *harness.Result) (string, error) {
	var storeOpts []store.Option
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}
	st, err := store.Open(opts.Database, storeOpts...)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	rec, err := st.WriteRun(ctx, store.NewRunRecord(scenario, baseURL, result))
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func writeMetrics(path string, recorder *metrics.Recorder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	if err := recorder.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputRunJSON(formatter *OutputFormatter, out RunOutput) error {
	if out.Report.Pass {
		return formatter.Success(out)
	}
	return formatter.encode(CLIResponse{
		Status: "error",
		Data:   out,
		Error: &CLIError{
			Code:    failureCode(out.Report),
			Message: fmt.Sprintf("scenario %s failed", out.Report.Scenario),
			Details: out.Report.Errors,
		},
	})
}

func outputRunText(cmd *cobra.Command, out RunOutput) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Scenario: %s\n", out.Report.Scenario)
	printReport(w, out.Report)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Steps: %d executed, %d succeeded (%s)\n", out.Executed, out.Succeeded, out.Report.State)
	if out.RunID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", out.RunID)
	}
	if out.Report.Pass {
		fmt.Fprintln(w, "✓ PASS")
	} else {
		fmt.Fprintln(w, "✗ FAIL")
	}
}

func failureCode(report *harness.Report) string {
	if report.Fatal {
		return ErrCodeHalted
	}
	return ErrCodeAssertion
}

// commandContext returns the command's context, or Background when the
// command is executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
