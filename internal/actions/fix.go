package actions

import (
	"stacker.dev/stacker/internal/engine"
	"stacker.dev/stacker/internal/git"
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
)

// FixOptions contains options for the fix command
type FixOptions struct {
	BranchName string
	BaseName   string
}

// FixAction optionally binds a branch to a base, then prunes and heals
// bookkeeping refs. Warnings are logged by the engine as they are found.
func FixAction(ctx *runtime.Context, opts FixOptions) error {
	report, err := ctx.Engine.Fix(ctx.Context, engine.FixOptions{
		Branch: opts.BranchName,
		Base:   opts.BaseName,
	})
	if err != nil {
		return err
	}

	for _, b := range report.Bound {
		ctx.Splog.Info("Set the base of %s to %s.", colorBranch(b), colorBranch(git.BranchName(opts.BaseName)))
	}
	for _, b := range report.Pruned {
		ctx.Splog.Info("Dropped bookkeeping for deleted branch %s.", colorBranch(b))
	}
	for _, b := range report.Healed {
		ctx.Splog.Info("Restored the start of %s.", colorBranch(b))
	}
	if !report.Changed() && len(report.Warnings) == 0 {
		ctx.Splog.Info("Nothing to fix.")
	}
	return nil
}

func colorBranch(b git.BranchName) string {
	return output.ColorBranchName(string(b), false)
}
