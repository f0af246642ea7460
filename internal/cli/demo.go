package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sebo/internal/catalog"
)

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo <" + strings.Join(catalog.PlanNames(), "|") + ">",
		Short: "Run a built-in catalog walkthrough",
		Long: `Run one of the built-in catalog walkthroughs:

  rest     list, search, create/read/delete, exchange and sale over the resource API
  rpc      the same flow through CatalogoService and TransacaoService invocations
  halting  an invalid exchange under the propagate policy stops the run

Example:
  sebo demo rest
  sebo demo rpc --base-url http://localhost:8000 --format json`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     catalog.PlanNames(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := catalog.PlanByName(args[0])
			if err != nil {
				formatter := newFormatter(opts.RootOptions, cmd)
				_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
				return WrapExitError(ExitCommandError, fmt.Sprintf("unknown demo %q", args[0]), err)
			}
			return executePlan(opts, plan, newFormatter(opts.RootOptions, cmd), cmd)
		},
	}

	addRunFlags(cmd, opts)

	return cmd
}
