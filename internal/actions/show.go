package actions

import (
	"fmt"
	"strings"

	"stacker.dev/stacker/internal/engine"
	"stacker.dev/stacker/internal/git"
	"stacker.dev/stacker/internal/output"
	"stacker.dev/stacker/internal/runtime"
)

// ShowAction prints the bookkeeping state of every tracked branch.
func ShowAction(ctx *runtime.Context) error {
	statuses, err := ctx.Engine.Show(ctx.Context)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		ctx.Splog.Info("No tracked branches.")
		ctx.Splog.Tip("Start one with `stacker start <name>`.")
		return nil
	}

	var sb strings.Builder
	for _, st := range statuses {
		sb.WriteString(FormatBranchStatus(st))
		sb.WriteString("\n")
	}
	ctx.Splog.Page(sb.String())
	return nil
}

// FormatBranchStatus renders one branch as a status line followed by an
// indented line of object ids.
func FormatBranchStatus(st engine.BranchStatus) string {
	var line strings.Builder
	line.WriteString(output.ColorBranchName(string(st.Branch), st.Current))

	switch {
	case !st.HasBase:
		line.WriteString(" " + output.ColorError("no base"))
	case !st.BaseExists:
		line.WriteString(" on " + output.ColorError(string(st.Base)+" (deleted)"))
	default:
		line.WriteString(" on " + output.ColorBranchName(string(st.Base), false))
	}

	var badges []string
	if st.Orphaned {
		badges = append(badges, output.ColorError("deleted"))
	}
	if st.NeedsRebase {
		badges = append(badges, output.ColorWarning("needs rebase"))
	}
	if st.NeedsPush {
		badges = append(badges, output.ColorWarning("needs push"))
	}
	if len(badges) == 0 {
		badges = append(badges, output.ColorOK("up to date"))
	}
	line.WriteString(" [" + strings.Join(badges, ", ") + "]")

	objects := fmt.Sprintf("    head %s  start %s  pushed %s",
		shortOrDash(st.Head), shortOrDash(st.Start), shortOrDash(st.Remote))
	return line.String() + "\n" + output.ColorDim(objects)
}

func shortOrDash(o git.ObjectName) string {
	if o.IsZero() {
		return "-"
	}
	return o.Short()
}
