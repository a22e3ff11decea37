// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/runtime"
)

// Global flag names shared by every command.
const (
	FlagDir    = "dir"
	FlagConfig = "config"
	FlagDebug  = "debug"
)

// Options reads the global flags of cmd.
func Options(cmd *cobra.Command) runtime.Options {
	dir, _ := cmd.Flags().GetString(FlagDir)
	configFile, _ := cmd.Flags().GetString(FlagConfig)
	debug, _ := cmd.Flags().GetBool(FlagDebug)
	return runtime.Options{
		Dir:        dir,
		ConfigFile: configFile,
		Debug:      debug,
		Out:        cmd.OutOrStdout(),
	}
}

// Run is a helper that provides a runtime context to a command's execution function
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	ctx, err := runtime.GetContext(cmd.Context(), Options(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()
	return fn(ctx)
}
