package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	objectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	refNameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// ColorBranchName colors a branch name based on whether it's current
func ColorBranchName(branchName string, isCurrent bool) string {
	if isCurrent {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Render(branchName + " (current)")
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Render(branchName)
}

// ColorRefName colors a fully qualified ref name
func ColorRefName(name string) string {
	return refNameStyle.Render(name)
}

// ColorObject colors an abbreviated object id
func ColorObject(object string) string {
	return objectStyle.Render(object)
}

// ColorDim renders secondary text
func ColorDim(text string) string {
	return dimStyle.Render(text)
}

// ColorWarning renders a status that needs attention
func ColorWarning(text string) string {
	return warnStyle.Render(text)
}

// ColorOK renders a status that needs nothing
func ColorOK(text string) string {
	return okStyle.Render(text)
}

// ColorError renders a broken status
func ColorError(text string) string {
	return errorStyle.Render(text)
}

// IsTTY reports whether both stdin and stdout are terminals.
func IsTTY() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// IsStdoutTTY reports whether stdout is a terminal.
func IsStdoutTTY() bool {
	return isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConfigureColors turns styling off when stdout is not a terminal or when
// NO_COLOR is set.
func ConfigureColors() {
	if !IsStdoutTTY() || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
