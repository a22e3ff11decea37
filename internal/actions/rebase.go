package actions

import (
	"errors"

	stackererrors "stacker.dev/stacker/internal/errors"
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
)

// RebaseAction replays the current branch onto its base.
func RebaseAction(ctx *runtime.Context) error {
	res, err := ctx.Engine.Rebase(ctx.Context)
	if err != nil {
		if errors.Is(err, stackererrors.ErrRebaseConflict) {
			ctx.Splog.Tip("Resolve the conflicts, run `git rebase --continue`, then `stacker rebase` again to record the new start.")
		}
		return err
	}

	branch := output.ColorBranchName(string(res.Branch), true)
	base := output.ColorBranchName(string(res.Base), false)
	if res.OldStart == res.NewStart {
		ctx.Splog.Info("%s is already based on the tip of %s.", branch, base)
		return nil
	}
	ctx.Splog.Info("Rebased %s onto %s (%s -> %s).", branch, base,
		output.ColorObject(res.OldStart.Short()), output.ColorObject(res.NewStart.Short()))
	return nil
}
