package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/actions"
	"stacker.dev/stacker/internal/cli/helpers"
	"stacker.dev/stacker/internal/runtime"
)

// newFixCmd creates the fix command
func newFixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix [<branch> [<base>]]",
		Short: "Repair stacker's bookkeeping refs",
		Long: `Repair the refs stacker keeps for each branch.

With a branch and a base, first record base as the base of branch, for
example to adopt a branch that was not created with stacker start.

Then drop the refs of branches that were deleted and recreate the start of
branches that lost it, using the point where they forked from their base.`,
		Args:              cobra.MaximumNArgs(2),
		ValidArgsFunction: helpers.CompleteBranches,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := actions.FixOptions{}
			if len(args) > 0 {
				opts.BranchName = args[0]
			}
			if len(args) > 1 {
				opts.BaseName = args[1]
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.FixAction(ctx, opts)
			})
		},
	}
}
