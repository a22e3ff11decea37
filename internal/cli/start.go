package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/actions"
	"stacker.dev/stacker/internal/cli/helpers"
	"stacker.dev/stacker/internal/runtime"
)

// newStartCmd creates the start command
func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start [branch]",
		Aliases: []string{"s"},
		Short:   "Create a branch on top of the current one",
		Long: `Create a branch at HEAD, switch to it and record the current branch as
its base. Without a name you are asked for one when running interactively.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := actions.StartOptions{}
			if len(args) > 0 {
				opts.BranchName = args[0]
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.StartAction(ctx, opts)
			})
		},
	}
	return cmd
}
