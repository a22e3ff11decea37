// Package errors provides sentinel errors and custom error types for the stacker application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrHeadNotDefined indicates that HEAD does not point at a branch
	ErrHeadNotDefined = errors.New("HEAD is not on a branch")

	// ErrInvalidBranchName indicates that a branch name was rejected by git
	ErrInvalidBranchName = errors.New("invalid branch name")

	// ErrRefNotFound indicates that a required ref is missing from the snapshot
	ErrRefNotFound = errors.New("ref not found")

	// ErrBaseBranchAlreadyDefined indicates that a branch already has a different base
	ErrBaseBranchAlreadyDefined = errors.New("base branch already defined")

	// ErrBaseNotSpecified indicates that fix was given a branch but no base
	ErrBaseNotSpecified = errors.New("base branch not specified")

	// ErrBackendFailure is the catch-all for failed git invocations
	ErrBackendFailure = errors.New("git backend failure")

	// ErrPreconditionFailed indicates that a compare-and-swap expectation did not hold
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrRefConflict indicates that a ref cannot be created because another
	// ref already uses its name as a directory, or the other way around
	ErrRefConflict = errors.New("ref name conflict")

	// ErrRefQueryFailed indicates that the ref listing could not be obtained
	ErrRefQueryFailed = errors.New("ref query failed")

	// ErrParseFailed indicates that a ref listing row could not be decoded
	ErrParseFailed = errors.New("failed to parse ref listing")

	// ErrRebaseConflict indicates that a rebase stopped on a conflict
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrStaleSnapshot is the panic value raised when a consumed snapshot is read
	ErrStaleSnapshot = errors.New("snapshot read after repository mutation")
)

// RefNotFoundError represents a ref that was required but not present
type RefNotFoundError struct {
	Name string
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("ref %s does not exist", e.Name)
}

// Is returns true if the target error is ErrRefNotFound
func (e *RefNotFoundError) Is(target error) bool {
	return target == ErrRefNotFound
}

// NewRefNotFoundError creates a new RefNotFoundError
func NewRefNotFoundError(name string) *RefNotFoundError {
	return &RefNotFoundError{Name: name}
}

// InvalidBranchNameError represents a branch name that git refused
type InvalidBranchNameError struct {
	Name string
	Err  error
}

func (e *InvalidBranchNameError) Error() string {
	if e.Name == "" {
		return "branch name must not be empty"
	}
	return fmt.Sprintf("%q is not a valid branch name", e.Name)
}

// Is returns true if the target error is ErrInvalidBranchName
func (e *InvalidBranchNameError) Is(target error) bool {
	return target == ErrInvalidBranchName
}

func (e *InvalidBranchNameError) Unwrap() error {
	return e.Err
}

// NewInvalidBranchNameError creates a new InvalidBranchNameError
func NewInvalidBranchNameError(name string, err error) *InvalidBranchNameError {
	return &InvalidBranchNameError{Name: name, Err: err}
}

// BaseBranchAlreadyDefinedError is returned when binding a branch to a base
// while it already points at another one.
type BaseBranchAlreadyDefinedError struct {
	Branch    string
	Current   string
	Requested string
}

func (e *BaseBranchAlreadyDefinedError) Error() string {
	return fmt.Sprintf("branch %s already has base %s (requested %s)", e.Branch, e.Current, e.Requested)
}

// Is returns true if the target error is ErrBaseBranchAlreadyDefined
func (e *BaseBranchAlreadyDefinedError) Is(target error) bool {
	return target == ErrBaseBranchAlreadyDefined
}

// NewBaseBranchAlreadyDefinedError creates a new BaseBranchAlreadyDefinedError
func NewBaseBranchAlreadyDefinedError(branch, current, requested string) *BaseBranchAlreadyDefinedError {
	return &BaseBranchAlreadyDefinedError{Branch: branch, Current: current, Requested: requested}
}

// RebaseConflictError represents an error when a rebase encounters a conflict
type RebaseConflictError struct {
	BranchName string
	Message    string
}

func (e *RebaseConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rebase conflict on branch %s: %s", e.BranchName, e.Message)
	}
	return fmt.Sprintf("rebase conflict on branch %s", e.BranchName)
}

// Is returns true if the target error is ErrRebaseConflict or ErrBackendFailure
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict || target == ErrBackendFailure
}

// NewRebaseConflictError creates a new RebaseConflictError
func NewRebaseConflictError(branchName string, message string) *RebaseConflictError {
	return &RebaseConflictError{
		BranchName: branchName,
		Message:    message,
	}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command  string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", stderr)
	}
	if stdout := strings.TrimSpace(e.Stdout); stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

// Is returns true if the target error is ErrBackendFailure
func (e *GitCommandError) Is(target error) bool {
	return target == ErrBackendFailure
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, exitCode int, err error) *GitCommandError {
	return &GitCommandError{
		Command:  command,
		Args:     args,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		Err:      err,
	}
}

// PreconditionFailedError wraps a backend failure caused by a compare-and-swap
// expectation not holding. It matches both ErrPreconditionFailed and ErrBackendFailure.
type PreconditionFailedError struct {
	Ref string
	Err error
}

func (e *PreconditionFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed for %s: %v", e.Ref, e.Err)
	}
	return fmt.Sprintf("precondition failed for %s", e.Ref)
}

// Is returns true if the target error is ErrPreconditionFailed or ErrBackendFailure
func (e *PreconditionFailedError) Is(target error) bool {
	return target == ErrPreconditionFailed || target == ErrBackendFailure
}

func (e *PreconditionFailedError) Unwrap() error {
	return e.Err
}

// NewPreconditionFailedError creates a new PreconditionFailedError
func NewPreconditionFailedError(ref string, err error) *PreconditionFailedError {
	return &PreconditionFailedError{Ref: ref, Err: err}
}

// RefConflictError reports a ref whose path clashes with an existing ref,
// e.g. refs/stacker/base/feat/x while refs/stacker/base/feat exists.
type RefConflictError struct {
	Ref      string
	Conflict string
	Err      error
}

func (e *RefConflictError) Error() string {
	msg := fmt.Sprintf("cannot create %s", e.Ref)
	if e.Conflict != "" {
		msg += fmt.Sprintf(": conflicts with %s", e.Conflict)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Is returns true if the target error is ErrRefConflict, or ErrBackendFailure
// when git reported the conflict
func (e *RefConflictError) Is(target error) bool {
	return target == ErrRefConflict || (e.Err != nil && target == ErrBackendFailure)
}

func (e *RefConflictError) Unwrap() error {
	return e.Err
}

// NewRefConflictError creates a new RefConflictError
func NewRefConflictError(ref, conflict string, err error) *RefConflictError {
	return &RefConflictError{Ref: ref, Conflict: conflict, Err: err}
}

// ParseError describes a ref listing row that could not be decoded
type ParseError struct {
	Line   int
	Row    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ref listing line %d: %s: %q", e.Line, e.Reason, e.Row)
}

// Is returns true if the target error is ErrParseFailed
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailed
}

// NewParseError creates a new ParseError
func NewParseError(line int, row, reason string) *ParseError {
	return &ParseError{Line: line, Row: row, Reason: reason}
}

// RefQueryError wraps the backend failure that prevented listing refs
type RefQueryError struct {
	Err error
}

func (e *RefQueryError) Error() string {
	return fmt.Sprintf("failed to list refs: %v", e.Err)
}

// Is returns true if the target error is ErrRefQueryFailed
func (e *RefQueryError) Is(target error) bool {
	return target == ErrRefQueryFailed
}

func (e *RefQueryError) Unwrap() error {
	return e.Err
}
