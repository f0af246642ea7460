package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ValidationError is one scenario file that failed validation.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidatedScenario is one scenario file that passed validation.
type ValidatedScenario struct {
	File  string `json:"file"`
	Name  string `json:"name"`
	Steps int    `json:"steps"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                `json:"valid"`
	Scenarios []ValidatedScenario `json:"scenarios,omitempty"`
	Errors    []ValidationError   `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file|scenarios-dir>",
		Short: "Validate scenarios without sending any request",
		Long: `Parse scenario files and check that every step can be encoded.

Nothing is sent to the server. Given a directory, every .yaml, .yml and
.cue file in it is validated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	info, err := os.Stat(path)
	if err != nil {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("path not found: %s", path))
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindScenarioFiles(path, "")
		if err != nil {
			return outputValidateError(formatter, ErrCodeScanError, fmt.Sprintf("error scanning directory: %v", err))
		}
		if len(files) == 0 {
			return outputValidateError(formatter, ErrCodeNoFiles, fmt.Sprintf("no scenario files found in %s", path))
		}
	}

	var result ValidationResult
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		scenario, verr := validateFile(file)
		if verr != nil {
			result.Errors = append(result.Errors, *verr)
			continue
		}
		result.Scenarios = append(result.Scenarios, scenario)
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func validateFile(file string) (ValidatedScenario, *ValidationError) {
	scenario, err := LoadScenarioFile(file)
	if err != nil {
		code := ErrCodeLoadFailed
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
			err = errors.New(loadErr.Message)
		}
		return ValidatedScenario{}, &ValidationError{File: file, Code: code, Message: err.Error()}
	}

	plan, err := scenario.Plan()
	if err != nil {
		return ValidatedScenario{}, &ValidationError{File: file, Code: ErrCodeScript, Message: err.Error()}
	}

	return ValidatedScenario{File: file, Name: scenario.Name, Steps: len(plan.Steps)}, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	result.Valid = true
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, s := range result.Scenarios {
		fmt.Fprintf(formatter.Writer, "✓ %s (%d steps)\n", s.Name, s.Steps)
	}
	fmt.Fprintln(formatter.Writer, "✓ All scenarios valid")
	return nil
}

// outputValidateError outputs a single command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every invalid scenario (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		first := result.Errors[0]
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "%s\n", e.File)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Code, e.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
