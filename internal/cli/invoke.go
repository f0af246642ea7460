package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sebo/internal/classify"
	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/harness"
	"github.com/roach88/sebo/internal/ir"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args   string
	Kwargs string
	Policy string
}

// CallOutput is the data payload printed by invoke and request.
type CallOutput struct {
	Target    string           `json:"target"`
	RequestID int64            `json:"request_id,omitempty"`
	Outcome   classify.Outcome `json:"outcome"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <Object.method>",
		Short: "Call a remote service method through /invoke",
		Long: `Call one remote service method through the /invoke endpoint and
print the response.

A failed call exits with code 1 unless --policy continue is given.

Example:
  sebo invoke CatalogoService.listar
  sebo invoke CatalogoService.buscar --args '["python"]'
  sebo invoke TransacaoService.trocar --args '["E1","E2"]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeMethod(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "positional arguments as a JSON array")
	cmd.Flags().StringVar(&opts.Kwargs, "kwargs", "{}", "keyword arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Policy, "policy", string(envelope.Propagate), "error policy (propagate|continue)")

	return cmd
}

func invokeMethod(opts *InvokeOptions, target string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	object, method, ok := strings.Cut(target, ".")
	if !ok || object == "" || method == "" {
		return invalidInput(formatter, fmt.Errorf("invalid target %q: want <Object.method>", target))
	}

	args, err := parseJSONFlag("--args", opts.Args)
	if err != nil {
		return invalidInput(formatter, err)
	}
	argList, ok := args.(ir.Array)
	if !ok {
		return invalidInput(formatter, fmt.Errorf("invalid --args: must be a JSON array"))
	}

	kwargs, err := parseJSONFlag("--kwargs", opts.Kwargs)
	if err != nil {
		return invalidInput(formatter, err)
	}
	kwargObj, ok := kwargs.(ir.Object)
	if !ok {
		return invalidInput(formatter, fmt.Errorf("invalid --kwargs: must be a JSON object"))
	}

	op := envelope.Invoke(object, method, argList...)
	if len(kwargObj) > 0 {
		op = op.WithKwargs(kwargObj)
	}
	return executeCall(opts.RootOptions, op, opts.Policy, formatter, cmd)
}

// executeCall sends a single operation and prints its response.
func executeCall(opts *RootOptions, op envelope.Operation, policy string, formatter *OutputFormatter, cmd *cobra.Command) error {
	p, err := envelope.ParsePolicy(policy)
	if err != nil {
		return invalidInput(formatter, err)
	}
	op = op.WithPolicy(p)

	runner, inv := newRunner(opts, cmd)
	defer inv.Close()

	result, runErr := runner.Run(commandContext(cmd), []envelope.Operation{op})
	if runErr != nil && !harness.IsHalt(runErr) {
		_ = formatter.Error(ErrCodeScript, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "request cannot be sent", runErr)
	}

	step, _ := result.Last()
	out := CallOutput{Target: op.Target(), RequestID: step.RequestID, Outcome: step.Outcome}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: out}
		if !step.Outcome.Succeeded {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeHalted, Message: step.Outcome.ErrorMessage}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		formatter.VerboseLog("%s -> %d", out.Target, step.Outcome.StatusCode)
		printOutcome(cmd.OutOrStdout(), step.Outcome)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, step.Outcome.ErrorMessage, runErr)
	}
	return nil
}

// parseJSONFlag decodes a JSON flag value, keeping integers exact.
func parseJSONFlag(flag, raw string) (ir.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid %s JSON: %w", flag, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid %s JSON: trailing data", flag)
	}
	val, err := ir.FromAny(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", flag, err)
	}
	return val, nil
}

func invalidInput(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
	return WrapExitError(ExitCommandError, "invalid input", err)
}
