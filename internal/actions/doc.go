// Package actions implements the behaviour behind each stacker command.
//
// Actions take a runtime.Context and an options struct, call into the engine
// and report what happened through the context's Splog.
package actions
