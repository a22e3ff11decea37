package actions

import (
	"fmt"

	"stacker.dev/stacker/internal/git"
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
)

// InitAction hides stacker's refs from pushes, fetches and log decorations.
func InitAction(ctx *runtime.Context) error {
	if err := ctx.Engine.Init(ctx.Context); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	ctx.Splog.Info("Initialized stacker, %s is now hidden from transfers and logs.", output.ColorRefName(git.StackerRefPrefix))
	ctx.Splog.Tip("Create your first stacked branch with `stacker start <name>`.")
	return nil
}

// CleanAction reverts InitAction. Bookkeeping refs stay where they are.
func CleanAction(ctx *runtime.Context) error {
	if err := ctx.Engine.Clean(ctx.Context); err != nil {
		return fmt.Errorf("failed to clean: %w", err)
	}
	ctx.Splog.Info("Removed stacker's git configuration, %s is visible again.", output.ColorRefName(git.StackerRefPrefix))
	return nil
}
