package actions

import (
	"fmt"

	"stacker.dev/stacker/internal/engine"
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
	"stacker.dev/stacker/internal/tui"
)

// PushAction publishes the current branch and remembers what was pushed.
func PushAction(ctx *runtime.Context) error {
	var res engine.PushResult
	err := withSpinner(ctx, "Pushing...", func() error {
		var err error
		res, err = ctx.Engine.Push(ctx.Context)
		return err
	})
	if err != nil {
		return err
	}

	lease := "new branch"
	if !res.Expected.IsZero() {
		lease = fmt.Sprintf("was %s", output.ColorObject(res.Expected.Short()))
	}
	ctx.Splog.Info("Pushed %s to %s at %s (%s).",
		output.ColorBranchName(string(res.Branch), false),
		res.Remote,
		output.ColorObject(res.Object.Short()),
		lease)
	return nil
}

func withSpinner(ctx *runtime.Context, title string, fn func() error) error {
	if !ctx.Config.Interactive || ctx.Config.Debug {
		return fn()
	}
	return tui.RunWithSpinner(ctx.Splog, title, fn)
}
