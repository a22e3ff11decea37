// Package engine reconciles stacker's bookkeeping refs with the branches they describe.
//
// Every branch B tracked by stacker owns up to three refs:
//
//	refs/stacker/base/B    symbolic ref to the head ref of B's base branch
//	refs/stacker/start/B   the commit B was forked from on its base
//	refs/stacker/remote/B  the object last pushed for B
//
// git offers no transaction spanning several refs, so each operation reads one
// Snapshot, plans its writes, then applies them one by one with the observed
// value as a compare-and-swap precondition. An interrupted operation leaves a
// partial state that Fix repairs.
package engine

import (
	"context"

	"stacker.dev/stacker/internal/git"
)

// Engine is the set of reconciliation operations exposed to commands.
type Engine interface {
	// Init hides stacker's refs from transfers and log decorations.
	Init(ctx context.Context) error
	// Clean undoes Init. Bookkeeping refs are left in place.
	Clean(ctx context.Context) error
	// Start creates a branch at HEAD and records HEAD's branch as its base.
	Start(ctx context.Context, name string) (StartResult, error)
	// Push publishes the current branch, guarded by the last pushed object.
	Push(ctx context.Context) (PushResult, error)
	// Rebase replays the current branch onto its base and advances its start ref.
	Rebase(ctx context.Context) (RebaseResult, error)
	// Sync fetches all remotes and prunes deleted remote branches.
	Sync(ctx context.Context) error
	// Fix binds, prunes and heals bookkeeping refs.
	Fix(ctx context.Context, opts FixOptions) (FixReport, error)
	// Show describes every tracked branch.
	Show(ctx context.Context) ([]BranchStatus, error)
	// Untrack removes a branch's bookkeeping refs, keeping the branch.
	Untrack(ctx context.Context, name string) (git.BranchName, error)
}

// StartResult describes the branch created by Start.
type StartResult struct {
	Branch git.BranchName
	Base   git.BranchName
	Object git.ObjectName
	// Pruned lists deleted branches whose leftover refs were removed first.
	Pruned []git.BranchName
}

// PushResult describes a successful Push.
type PushResult struct {
	Branch   git.BranchName
	Remote   git.RemoteName
	Object   git.ObjectName
	Expected git.ObjectName
}

// RebaseResult describes a successful Rebase.
type RebaseResult struct {
	Branch   git.BranchName
	Base     git.BranchName
	OldStart git.ObjectName
	NewStart git.ObjectName
}

// FixOptions selects the optional explicit bind performed before repairs.
// Both fields are empty, or both are set.
type FixOptions struct {
	Branch string
	Base   string
}

// FixReport lists what each Fix phase did.
type FixReport struct {
	Bound    []git.BranchName
	Pruned   []git.BranchName
	Healed   []git.BranchName
	Warnings []string
}

// Changed reports whether Fix touched any ref.
func (r FixReport) Changed() bool {
	return len(r.Bound)+len(r.Pruned)+len(r.Healed) > 0
}

// BranchStatus is the bookkeeping state of one tracked branch.
type BranchStatus struct {
	Branch     git.BranchName
	Current    bool
	Base       git.BranchName
	HasBase    bool
	BaseExists bool

	Head       git.ObjectName
	BaseObject git.ObjectName
	Start      git.ObjectName
	Remote     git.ObjectName

	// Orphaned is set when the branch itself is gone; fix will prune it.
	Orphaned bool
	// NeedsRebase is set when the base has moved past the start ref.
	NeedsRebase bool
	// NeedsPush is set when the branch was never pushed or moved since.
	NeedsPush bool
}
