package actions

import (
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
)

// ConfigAction prints the effective configuration as YAML.
func ConfigAction(ctx *runtime.Context) error {
	rendered, err := ctx.Config.Render()
	if err != nil {
		return err
	}
	if ctx.Config.File != "" {
		ctx.Splog.Info("%s", output.ColorDim("# from "+ctx.Config.File))
	} else {
		ctx.Splog.Info("%s", output.ColorDim("# defaults, no configuration file found"))
	}
	ctx.Splog.Page(rendered)
	return nil
}
