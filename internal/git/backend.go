package git

import "context"

// Backend is the set of primitive repository operations the engine relies on.
//
// Every mutating call is atomic. Calls that carry an expected object fail with
// an error matching errors.ErrPreconditionFailed when the ref does not hold that
// value; ZeroObject means the ref must not exist. All other failures match
// errors.ErrBackendFailure.
type Backend interface {
	// QueryRefs lists every ref, one RefFormat row per line.
	QueryRefs(ctx context.Context) (string, error)
	// ValidateBranchName fails if name is not an acceptable branch name.
	ValidateBranchName(ctx context.Context, name string) error

	CreateBranch(ctx context.Context, name BranchName, base ObjectName) error
	SwitchBranch(ctx context.Context, name BranchName) error

	CreateSymref(ctx context.Context, name, target RefName, reason string) error
	DeleteSymref(ctx context.Context, name RefName) error

	CreateRef(ctx context.Context, name RefName, object ObjectName) error
	UpdateRef(ctx context.Context, name RefName, newObject, expected ObjectName) error
	DeleteRef(ctx context.Context, name RefName, expected ObjectName) error

	// RebaseOnto replays branch's commits after its start ref onto its base.
	RebaseOnto(ctx context.Context, branch BranchName) error
	// Push publishes branch to remote, provided the remote still holds expected.
	Push(ctx context.Context, branch BranchName, remote RemoteName, expected ObjectName) error
	FetchAllPrune(ctx context.Context) error
	// ForkPoint returns the commit where branch diverged from base.
	ForkPoint(ctx context.Context, base, branch RefName) (ObjectName, error)

	// ConfigAdd adds a local config value unless it is already present.
	ConfigAdd(ctx context.Context, key, value string) error
	// ConfigUnsetMatching removes every local value of key equal to value.
	// Removing nothing is not an error.
	ConfigUnsetMatching(ctx context.Context, key, value string) error
}
