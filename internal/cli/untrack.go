package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/actions"
	"stacker.dev/stacker/internal/cli/helpers"
	"stacker.dev/stacker/internal/runtime"
)

// newUntrackCmd creates the untrack command
func newUntrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <branch>",
		Short: "Stop tracking a branch with stacker",
		Long: `Delete the bookkeeping refs of a branch. The branch itself, its commits and
its remote copy are left alone.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.UntrackAction(ctx, actions.UntrackOptions{BranchName: args[0]})
			})
		},
	}
}
