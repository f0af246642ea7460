package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sebo/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Scenario string
	Request  string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List journaled runs",
		Long: `List the runs journaled with run --db or demo --db, oldest first.
Given a run id, print that run step by step. Given --request, list every
journaled step that sent the request with that fingerprint.

Example:
  sebo history --db ./runs.db
  sebo history --db ./runs.db --scenario sebo_rest
  sebo history --db ./runs.db 0192f3c4-...
  sebo history --db ./runs.db --request 5d41402abc4b...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "only list runs of this scenario")
	cmd.Flags().StringVar(&opts.Request, "request", "", "list the steps that sent the request with this fingerprint")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := commandContext(cmd)

	if opts.Request != "" {
		found, err := st.FindRequest(ctx, opts.Request)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to find request", err)
		}
		if opts.Format == "json" {
			return formatter.Success(found)
		}
		return printOccurrences(cmd, found)
	}

	if len(args) == 1 {
		run, err := st.GetRun(ctx, args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "unknown run", err)
		}
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		if opts.Format == "json" {
			return formatter.Success(run)
		}
		printRun(cmd, run)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Scenario)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if opts.Format == "json" {
		return formatter.Success(runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs journaled.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tSCENARIO\tSTATE\tSTEPS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
			r.Seq, r.ID, r.Scenario, r.State, r.StepsSucceeded, r.StepsTotal,
			r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func printRun(cmd *cobra.Command, run store.RunRecord) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s (#%d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "Scenario: %s\n", run.Scenario)
	fmt.Fprintf(w, "Base URL: %s\n", run.BaseURL)
	fmt.Fprintf(w, "State: %s (%d/%d steps succeeded)\n", run.State, run.StepsSucceeded, run.StepsTotal)
	fmt.Fprintln(w)
	for _, s := range run.Steps {
		mark := "✓"
		if !s.Succeeded {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %2d %-24s %-32s %d", mark, s.Index+1, s.Name, s.Target, s.Status)
		if len(s.RequestHash) >= 12 {
			fmt.Fprintf(w, " #%s", s.RequestHash[:12])
		}
		if s.RequestID != 0 {
			fmt.Fprintf(w, " [request %d]", s.RequestID)
		}
		fmt.Fprintln(w)
		if s.ErrorMessage != "" {
			fmt.Fprintf(w, "     %s\n", s.ErrorMessage)
		}
	}
}

func printOccurrences(cmd *cobra.Command, found []store.Occurrence) error {
	w := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintln(w, "Request never journaled.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tSCENARIO\tSTEP\tSTATUS\tOK")
	for _, o := range found {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d %s\t%d\t%t\n", o.RunSeq, o.RunID, o.Scenario, o.Index+1, o.Name, o.Status, o.Succeeded)
	}
	return tw.Flush()
}
