package engine

import (
	"context"
	"fmt"
	"sort"

	"stacker.dev/stacker/internal/errors"
	"stacker.dev/stacker/internal/git"
	"stacker.dev/stacker/internal/output"
)

const (
	hideRefsKey          = "transfer.hideRefs"
	excludeDecorationKey = "log.excludeDecoration"

	startReason = "stacker: base branch marker"
	bindReason  = "stacker: set base branch"

	// DefaultRemote is pushed to when neither the base nor the branch has an upstream.
	DefaultRemote git.RemoteName = "origin"
)

// Options configures an engine.
type Options struct {
	Backend       git.Backend
	Splog         *output.Splog
	DefaultRemote git.RemoteName
}

type engineImpl struct {
	backend       git.Backend
	splog         *output.Splog
	defaultRemote git.RemoteName
}

var _ Engine = (*engineImpl)(nil)

// New creates an engine driving opts.Backend.
func New(opts Options) Engine {
	e := &engineImpl{
		backend:       opts.Backend,
		splog:         opts.Splog,
		defaultRemote: opts.DefaultRemote,
	}
	if e.splog == nil {
		e.splog = output.NewDiscardSplog()
	}
	if e.defaultRemote == "" {
		e.defaultRemote = DefaultRemote
	}
	return e
}

func (e *engineImpl) snapshot(ctx context.Context) (*git.Snapshot, error) {
	return git.TakeSnapshot(ctx, e.backend)
}

func (e *engineImpl) Init(ctx context.Context) error {
	for _, key := range []string{hideRefsKey, excludeDecorationKey} {
		if err := e.backend.ConfigAdd(ctx, key, git.StackerRefPrefix); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		e.splog.Debug("config %s includes %s", key, git.StackerRefPrefix)
	}
	return nil
}

func (e *engineImpl) Clean(ctx context.Context) error {
	for _, key := range []string{hideRefsKey, excludeDecorationKey} {
		if err := e.backend.ConfigUnsetMatching(ctx, key, git.StackerRefPrefix); err != nil {
			return fmt.Errorf("failed to unset %s: %w", key, err)
		}
		e.splog.Debug("config %s no longer includes %s", key, git.StackerRefPrefix)
	}
	return nil
}

func (e *engineImpl) Start(ctx context.Context, name string) (StartResult, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return StartResult{}, err
	}
	head, ok := snap.Head()
	if !ok {
		return StartResult{}, errors.ErrHeadNotDefined
	}
	branch, err := git.CheckBranchName(ctx, e.backend, name)
	if err != nil {
		return StartResult{}, err
	}
	headRef, ok := snap.Branch(head)
	if !ok {
		return StartResult{}, errors.NewRefNotFoundError(string(head.RefName()))
	}
	if _, exists := snap.Branch(branch); exists {
		return StartResult{}, errors.NewPreconditionFailedError(string(branch.RefName()),
			fmt.Errorf("branch %s already exists", branch))
	}
	stale, err := staleFamilies(snap, branch)
	if err != nil {
		return StartResult{}, err
	}

	var p plan
	for _, b := range stale {
		e.splog.Debug("dropping bookkeeping of deleted branch %s", b)
		p = append(p, removeTracking(snap, b)...)
	}
	p = append(p,
		createBranch(branch, headRef.Object),
		switchBranch(branch),
		createSymref(branch.BaseRefName(), head.RefName(), startReason),
		createRef(branch.StartRefName(), headRef.Object),
	)
	if err := e.apply(ctx, snap, p); err != nil {
		return StartResult{}, err
	}
	return StartResult{Branch: branch, Base: head, Object: headRef.Object, Pruned: stale}, nil
}

// staleFamilies returns the deleted branches whose bookkeeping refs would
// block the refs of a new branch: its own leftovers, and any whose names are
// a directory of the new ones or the other way around. A clash with a branch
// that still exists is an error.
func staleFamilies(snap *git.Snapshot, branch git.BranchName) ([]git.BranchName, error) {
	if conflicts := snap.Conflicts(branch.RefName()); len(conflicts) > 0 {
		return nil, errors.NewRefConflictError(string(branch.RefName()), string(conflicts[0]), nil)
	}

	seen := make(map[git.BranchName]struct{})
	for _, c := range git.Categories {
		if _, ok := snap.Ref(branch.TrackingRefName(c)); ok {
			seen[branch] = struct{}{}
		}
		for _, other := range snap.Conflicts(branch.TrackingRefName(c)) {
			owner, _, ok := git.TrackedBranchFromRefName(other)
			if !ok {
				return nil, errors.NewRefConflictError(string(branch.TrackingRefName(c)), string(other), nil)
			}
			if _, live := snap.Branch(owner); live {
				return nil, errors.NewRefConflictError(string(branch.TrackingRefName(c)), string(other), nil)
			}
			seen[owner] = struct{}{}
		}
	}

	out := make([]git.BranchName, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (e *engineImpl) Push(ctx context.Context) (PushResult, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return PushResult{}, err
	}
	head, ok := snap.Head()
	if !ok {
		return PushResult{}, errors.ErrHeadNotDefined
	}
	baseRef, err := resolveBase(snap, head)
	if err != nil {
		return PushResult{}, err
	}

	remote := baseRef.Remote
	if remote == "" {
		if branchRef, ok := snap.Branch(head); ok {
			remote = branchRef.Remote
		}
	}
	if remote == "" {
		remote = e.defaultRemote
	}

	expected := git.ZeroObject
	if remoteRef, ok := snap.Ref(head.RemoteRefName()); ok && remoteRef.Exists() {
		expected = remoteRef.Object
	}

	if err := e.apply(ctx, snap, plan{push(head, remote, expected)}); err != nil {
		return PushResult{}, err
	}

	snap, err = e.snapshot(ctx)
	if err != nil {
		return PushResult{}, err
	}
	headRef, ok := snap.Branch(head)
	if !ok {
		return PushResult{}, errors.NewRefNotFoundError(string(head.RefName()))
	}
	if err := e.apply(ctx, snap, plan{updateRef(head.RemoteRefName(), headRef.Object, expected)}); err != nil {
		return PushResult{}, err
	}
	return PushResult{Branch: head, Remote: remote, Object: headRef.Object, Expected: expected}, nil
}

func (e *engineImpl) Rebase(ctx context.Context) (RebaseResult, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return RebaseResult{}, err
	}
	head, ok := snap.Head()
	if !ok {
		return RebaseResult{}, errors.ErrHeadNotDefined
	}
	baseRef, err := resolveBase(snap, head)
	if err != nil {
		return RebaseResult{}, err
	}
	startRef, ok := snap.Ref(head.StartRefName())
	if !ok || !startRef.Exists() {
		return RebaseResult{}, errors.NewRefNotFoundError(string(head.StartRefName()))
	}

	p := plan{rebaseOnto(head)}
	if startRef.Object != baseRef.Object {
		p = append(p, updateRef(head.StartRefName(), baseRef.Object, startRef.Object))
	}
	if err := e.apply(ctx, snap, p); err != nil {
		return RebaseResult{}, err
	}

	base, _ := git.BranchFromRefName(baseRef.Name)
	return RebaseResult{Branch: head, Base: base, OldStart: startRef.Object, NewStart: baseRef.Object}, nil
}

func (e *engineImpl) Sync(ctx context.Context) error {
	if err := e.backend.FetchAllPrune(ctx); err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}

func (e *engineImpl) Untrack(ctx context.Context, name string) (git.BranchName, error) {
	branch, err := git.CheckBranchName(ctx, e.backend, name)
	if err != nil {
		return "", err
	}
	snap, err := e.snapshot(ctx)
	if err != nil {
		return "", err
	}
	p := removeTracking(snap, branch)
	if len(p) == 0 {
		return "", fmt.Errorf("branch %s is not tracked: %w", branch, errors.NewRefNotFoundError(string(branch.BaseRefName())))
	}
	if err := e.apply(ctx, snap, p); err != nil {
		return "", err
	}
	return branch, nil
}

// resolveBase follows head's base symref to the base branch's head ref.
func resolveBase(snap *git.Snapshot, head git.BranchName) (git.Ref, error) {
	sym, ok := snap.Ref(head.BaseRefName())
	if !ok || !sym.IsSymbolic() {
		return git.Ref{}, errors.NewRefNotFoundError(string(head.BaseRefName()))
	}
	baseRef, ok := snap.Ref(sym.SymrefTarget)
	if !ok || !baseRef.Exists() {
		return git.Ref{}, errors.NewRefNotFoundError(string(sym.SymrefTarget))
	}
	return baseRef, nil
}
