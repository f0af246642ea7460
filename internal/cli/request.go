package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sebo/internal/envelope"
)

// RequestOptions holds flags for the request command.
type RequestOptions struct {
	*RootOptions
	Data   string
	Policy string
}

// NewRequestCommand creates the request command.
func NewRequestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "request <METHOD> <path>",
		Short: "Send one request to the resource API",
		Long: `Send one GET, POST or DELETE request to a resource path and print
the response. POST requests without --data send an empty object.

Example:
  sebo request GET /produtos
  sebo request GET "/produtos?termo=python"
  sebo request POST /transacoes/troca --data '{"produto_a_id":"E1","produto_b_id":"E2"}'
  sebo request DELETE /produtos/T1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendRequest(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "request body as JSON (POST only)")
	cmd.Flags().StringVar(&opts.Policy, "policy", string(envelope.Propagate), "error policy (propagate|continue)")

	return cmd
}

func sendRequest(opts *RequestOptions, method, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	op := envelope.Operation{
		Style:  envelope.StyleREST,
		Method: strings.ToUpper(method),
		Path:   path,
	}
	if opts.Data != "" {
		body, err := parseJSONFlag("--data", opts.Data)
		if err != nil {
			return invalidInput(formatter, err)
		}
		op.Payload = body
	}

	return executeCall(opts.RootOptions, op, opts.Policy, formatter, cmd)
}
