// Package config loads stacker settings.
//
// Values are layered: built-in defaults, then an optional stacker.yaml found in
// the repository's .git directory or the user config directory (or given
// explicitly), then STACKER_* environment variables.
package config
