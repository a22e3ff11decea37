package actions

import (
	"stacker.dev/stacker/internal/runtime"
)

// SyncAction fetches every remote, pruning branches deleted upstream.
func SyncAction(ctx *runtime.Context) error {
	if err := withSpinner(ctx, "Fetching all remotes...", func() error {
		return ctx.Engine.Sync(ctx.Context)
	}); err != nil {
		return err
	}
	ctx.Splog.Info("Fetched all remotes.")
	ctx.Splog.Tip("Run `stacker show` to see which branches need a rebase.")
	return nil
}
