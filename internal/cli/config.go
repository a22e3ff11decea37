package cli

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/actions"
	"stacker.dev/stacker/internal/cli/helpers"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration stacker runs with, after applying stacker.yaml
from the repository's .git directory or the user config directory and
STACKER_* environment variables.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, actions.ConfigAction)
		},
	}
}
