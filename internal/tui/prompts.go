package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"stacker.dev/stacker/internal/output"
)

// ErrNotInteractive is returned by prompts when there is no terminal to ask on.
var ErrNotInteractive = errors.New("cannot prompt: not running in an interactive terminal")

// PromptBranchName asks for the name of a new branch.
func PromptBranchName(message string) (string, error) {
	if !output.IsTTY() {
		return "", ErrNotInteractive
	}

	var name string
	prompt := &survey.Input{
		Message: message,
	}
	if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
		return "", fmt.Errorf("canceled")
	}
	return strings.TrimSpace(name), nil
}
