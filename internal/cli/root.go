package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sebo/internal/harness"
	"github.com/roach88/sebo/internal/transport"
)

// DefaultBaseURL is the address the Sebo server listens on by default.
const DefaultBaseURL = "http://127.0.0.1:8000"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	BaseURL string
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sebo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sebo",
		Short: "sebo - scripted exercising of the Sebo catalog API",
		Long: `Drive the Sebo second-hand catalog through its resource API and its
remote invocation endpoint, one scripted step at a time.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Timeout <= 0 {
				return fmt.Errorf("invalid timeout %s: must be positive", opts.Timeout)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", DefaultBaseURL, "Sebo server base URL")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewRequestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger returns the diagnostic logger for a command. Logs always go to
// stderr so they never mix with JSON output.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newRunner wires an invoker and a runner from the global flags.
// The caller must Close the returned invoker.
func newRunner(opts *RootOptions, cmd *cobra.Command, extra ...harness.RunnerOption) (*harness.Runner, *transport.Invoker) {
	logger := newLogger(opts, cmd.ErrOrStderr())
	inv := transport.New(
		transport.WithTimeout(opts.Timeout),
		transport.WithLogger(logger),
	)
	runnerOpts := append([]harness.RunnerOption{harness.WithLogger(logger)}, extra...)
	return harness.NewRunner(inv, opts.BaseURL, runnerOpts...), inv
}
