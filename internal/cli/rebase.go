package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/actions"
	"stacker.dev/stacker/internal/cli/helpers"
)

// newRebaseCmd creates the rebase command
func newRebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "rebase",
		Short:        "Rebase the current branch onto the tip of its base",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, actions.RebaseAction)
		},
	}
}
