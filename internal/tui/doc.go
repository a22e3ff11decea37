// Package tui holds the interactive pieces of stacker: the progress spinner
// shown while git talks to a remote and the branch name prompt.
package tui
