package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/cli/helpers"
	"stacker.dev/stacker/internal/output"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stacker",
		Short: "Stacker keeps stacked git branches on top of each other",
		Long: `Stacker keeps stacked git branches on top of each other.

Every branch created with "stacker start" remembers the branch it was started
from and the commit it was forked at, using refs under refs/stacker/. From
there "stacker rebase" moves it onto the latest tip of its base and
"stacker push" publishes it without clobbering someone else's work.`,
		PersistentPreRun: func(*cobra.Command, []string) {
			output.ConfigureColors()
		},
	}

	rootCmd.PersistentFlags().StringP(helpers.FlagDir, "C", "", "Run as if stacker was started in this directory")
	rootCmd.PersistentFlags().String(helpers.FlagConfig, "", "Read configuration from this file")
	rootCmd.PersistentFlags().Bool(helpers.FlagDebug, false, "Print every git command that is run")

	rootCmd.AddCommand(
		newInitCmd(),
		newCleanCmd(),
		newStartCmd(),
		newPushCmd(),
		newRebaseCmd(),
		newSyncCmd(),
		newFixCmd(),
		newShowCmd(),
		newUntrackCmd(),
		newConfigCmd(),
		newVersionCmd(version, commit, date),
	)

	return rootCmd
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the stacker version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stacker %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
