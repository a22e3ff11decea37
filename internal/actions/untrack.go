package actions

import (
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
)

// UntrackOptions contains options for the untrack command
type UntrackOptions struct {
	BranchName string
}

// UntrackAction forgets a branch's base, start and pushed object. The branch
// itself is not touched.
func UntrackAction(ctx *runtime.Context, opts UntrackOptions) error {
	branch, err := ctx.Engine.Untrack(ctx.Context, opts.BranchName)
	if err != nil {
		return err
	}
	ctx.Splog.Info("Stopped tracking %s.", output.ColorBranchName(string(branch), false))
	return nil
}
