package actions

import (
	"stacker.dev/stacker/internal/errors"
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
	"stacker.dev/stacker/internal/tui"
)

// StartOptions contains options for the start command
type StartOptions struct {
	BranchName string
}

// promptBranchName is replaced in tests.
var promptBranchName = tui.PromptBranchName

// StartAction creates a branch stacked on the current one and switches to it.
func StartAction(ctx *runtime.Context, opts StartOptions) error {
	name := opts.BranchName
	if name == "" {
		if !ctx.Config.Interactive {
			return errors.NewInvalidBranchNameError("", nil)
		}
		var err error
		name, err = promptBranchName("Name of the new branch")
		if err != nil {
			return err
		}
	}

	res, err := ctx.Engine.Start(ctx.Context, name)
	if err != nil {
		return err
	}
	for _, b := range res.Pruned {
		ctx.Splog.Info("Dropped bookkeeping for deleted branch %s.", colorBranch(b))
	}
	ctx.Splog.Info("Created %s on top of %s at %s.",
		output.ColorBranchName(string(res.Branch), true),
		output.ColorBranchName(string(res.Base), false),
		output.ColorObject(res.Object.Short()))
	return nil
}
