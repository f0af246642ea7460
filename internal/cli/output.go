package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sebo/internal/classify"
	"github.com/roach88/sebo/internal/harness"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A run halted, an expectation failed or a golden trace differs
	ExitCommandError = 2 // Command error (unreadable scenario, bad flags, journal unavailable)
)

// Error codes shared by all commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No scenario files found
	ErrCodeLoadFailed   = "E004" // Scenario load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeInvalidInput = "E008" // Malformed flag value

	ErrCodeScript    = "E101" // Step cannot be encoded
	ErrCodeHalted    = "E102" // Run halted under the propagate policy
	ErrCodeAssertion = "E103" // Step outcome did not match its expectation
	ErrCodeJournal   = "E201" // Run journal error
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`            // "ok" or "error"
	Data    interface{} `json:"data,omitempty"`    // success payload
	Error   *CLIError   `json:"error,omitempty"`   // error details
	TraceID string      `json:"trace_id,omitempty"` // optional trace correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// newFormatter builds the formatter for a command from the global flags.
// Verbose logs go to stderr to avoid corrupting JSON.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// commandError reports a load failure and converts it to exit code 2.
func commandError(f *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load scenario", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// noContentMarker is printed in place of an empty 204 body.
const noContentMarker = "(sem conteúdo)"

// printOutcome writes a single response the way the interactive clients
// show it.
func printOutcome(w io.Writer, out classify.Outcome) {
	fmt.Fprintf(w, "Status: %d\n", out.StatusCode)
	switch {
	case out.Failure == classify.FailureTransport:
		fmt.Fprintf(w, "Error: %s\n", out.ErrorMessage)
	case out.NoContent() || out.Body == "":
		fmt.Fprintf(w, "Response: %s\n", noContentMarker)
	default:
		fmt.Fprintf(w, "Response: %s\n", out.Body)
	}
}

// printReport writes one line per planned step followed by the
// expectation errors.
func printReport(w io.Writer, report *harness.Report) {
	for _, step := range report.Steps {
		mark := "✓"
		switch step.Verdict {
		case harness.VerdictExpectedFailure:
			mark = "~"
		case harness.VerdictNotExecuted:
			mark = "-"
		case harness.VerdictUnexpectedFailure, harness.VerdictUnexpectedSuccess:
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %2d %-24s %-32s %s", mark, step.Seq, step.Name, step.Target, step.Verdict)
		if step.Status != 0 {
			fmt.Fprintf(w, " (%d)", step.Status)
		}
		fmt.Fprintln(w)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
