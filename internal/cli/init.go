package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/actions"
	"stacker.dev/stacker/internal/cli/helpers"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Hide stacker's refs from pushes, fetches and git log",
		Long: `Configure the repository so that refs under refs/stacker/ are never
advertised to or fetched from remotes (transfer.hideRefs) and never shown as
decorations by git log (log.excludeDecoration). Running init twice is harmless.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, actions.InitAction)
		},
	}
}

// newCleanCmd creates the clean command
func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "clean",
		Short:        "Undo init",
		Long:         "Remove the configuration added by init. Bookkeeping refs are kept.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, actions.CleanAction)
		},
	}
}
