package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/actions"
	"stacker.dev/stacker/internal/cli/helpers"
)

// newPushCmd creates the push command
func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Publish the current branch",
		Long: `Push the current branch to the remote of its base branch, falling back to
its own upstream remote and then to the configured remote.

The push is forced, but only if the remote branch still points at what stacker
pushed last time (or does not exist yet for a first push).`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, actions.PushAction)
		},
	}
}
