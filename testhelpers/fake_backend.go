package testhelpers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stacker.dev/stacker/internal/errors"
	"stacker.dev/stacker/internal/git"
)

type fakeRef struct {
	object git.ObjectName
	target git.RefName
}

type fakeUpstream struct {
	remote git.RemoteName
}

// FakeBackend is an in-memory git.Backend. Ref writes honour their expected
// values exactly like git update-ref, and every successful mutation is
// appended to Mutations so tests can assert what an operation did.
type FakeBackend struct {
	mu sync.Mutex

	refs      map[git.RefName]fakeRef
	head      git.BranchName
	upstreams map[git.BranchName]fakeUpstream
	remotes   map[git.RemoteName]map[git.BranchName]git.ObjectName
	config    map[string][]string
	forkPts   map[string]git.ObjectName
	failures  map[string]error

	// Mutations lists every successful state change, e.g. "update-ref refs/stacker/start/x".
	Mutations []string
	// Calls lists every method invocation in order.
	Calls []string
	// OnCall runs before each method body, outside the lock, so a test can
	// simulate another writer racing the operation.
	OnCall func(method string)
}

var _ git.Backend = (*FakeBackend)(nil)

// NewFakeBackend returns an empty repository with no HEAD.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		refs:      make(map[git.RefName]fakeRef),
		upstreams: make(map[git.BranchName]fakeUpstream),
		remotes:   make(map[git.RemoteName]map[git.BranchName]git.ObjectName),
		config:    make(map[string][]string),
		forkPts:   make(map[string]git.ObjectName),
		failures:  make(map[string]error),
	}
}

// FakeObject derives a stable 40 character object id from seed.
func FakeObject(seed string) git.ObjectName {
	sum := sha1.Sum([]byte(seed))
	return git.ObjectName(hex.EncodeToString(sum[:]))
}

// SetBranch creates or moves refs/heads/<name> without recording a mutation.
func (f *FakeBackend) SetBranch(name git.BranchName, object git.ObjectName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[name.RefName()] = fakeRef{object: object}
}

// RemoveBranch deletes refs/heads/<name> without recording a mutation.
func (f *FakeBackend) RemoveBranch(name git.BranchName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refs, name.RefName())
	if f.head == name {
		f.head = ""
	}
}

// SetHead attaches HEAD to name. An empty name detaches it.
func (f *FakeBackend) SetHead(name git.BranchName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = name
}

// SetRef writes a direct ref without recording a mutation.
func (f *FakeBackend) SetRef(name git.RefName, object git.ObjectName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[name] = fakeRef{object: object}
}

// SetSymref writes a symbolic ref without recording a mutation.
func (f *FakeBackend) SetSymref(name, target git.RefName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[name] = fakeRef{target: target}
}

// RemoveRef deletes any ref without recording a mutation.
func (f *FakeBackend) RemoveRef(name git.RefName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refs, name)
}

// SetUpstream configures branch to track remote/branch.
func (f *FakeBackend) SetUpstream(branch git.BranchName, remote git.RemoteName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upstreams[branch] = fakeUpstream{remote: remote}
}

// SetRemoteBranch sets what remote holds for branch.
func (f *FakeBackend) SetRemoteBranch(remote git.RemoteName, branch git.BranchName, object git.ObjectName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteLocked(remote)[branch] = object
}

// RemoteBranch returns what remote holds for branch.
func (f *FakeBackend) RemoteBranch(remote git.RemoteName, branch git.BranchName) (git.ObjectName, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.remotes[remote][branch]
	return obj, ok
}

// SetForkPoint fixes the answer of ForkPoint(base, branch).
func (f *FakeBackend) SetForkPoint(base, branch git.RefName, object git.ObjectName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forkPts[string(base)+".."+string(branch)] = object
}

// FailOn makes every later call of method return err.
func (f *FakeBackend) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Object returns the object a ref resolves to, following symbolic refs.
func (f *FakeBackend) Object(name git.RefName) (git.ObjectName, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj := f.resolveLocked(name)
	return obj, !obj.IsZero()
}

// SymrefTarget returns the target of a symbolic ref.
func (f *FakeBackend) SymrefTarget(name git.RefName) (git.RefName, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.refs[name]
	if !ok || r.target == "" {
		return "", false
	}
	return r.target, true
}

// HasRef reports whether a ref exists, dangling symbolic refs included.
func (f *FakeBackend) HasRef(name git.RefName) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.refs[name]
	return ok
}

// Head returns the branch HEAD is attached to.
func (f *FakeBackend) Head() git.BranchName {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head
}

// ConfigValues returns the local values of key.
func (f *FakeBackend) ConfigValues(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.config[key]...)
}

// ResetJournal clears Mutations and Calls.
func (f *FakeBackend) ResetJournal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutations = nil
	f.Calls = nil
}

func (f *FakeBackend) enter(method string) error {
	if f.OnCall != nil {
		f.OnCall(method)
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, method)
	return f.failures[method]
}

func (f *FakeBackend) record(format string, args ...interface{}) {
	f.Mutations = append(f.Mutations, fmt.Sprintf(format, args...))
}

func (f *FakeBackend) resolveLocked(name git.RefName) git.ObjectName {
	for i := 0; i < 5; i++ {
		r, ok := f.refs[name]
		if !ok {
			return ""
		}
		if r.target == "" {
			return r.object
		}
		name = r.target
	}
	return ""
}

func (f *FakeBackend) remoteLocked(remote git.RemoteName) map[git.BranchName]git.ObjectName {
	m, ok := f.remotes[remote]
	if !ok {
		m = make(map[git.BranchName]git.ObjectName)
		f.remotes[remote] = m
	}
	return m
}

func commandError(method string, args []string, stderr string, code int) error {
	return errors.NewGitCommandError("git", append([]string{method}, args...), "", stderr, code, nil)
}

func (f *FakeBackend) QueryRefs(context.Context) (string, error) {
	if err := f.enter("QueryRefs"); err != nil {
		f.mu.Unlock()
		return "", err
	}
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.refs))
	for name := range f.refs {
		names = append(names, string(name))
	}
	sort.Strings(names)

	var rows []string
	for _, n := range names {
		name := git.RefName(n)
		r := f.refs[name]
		row := git.Ref{Name: name, SymrefTarget: r.target}
		row.Object = f.resolveLocked(name)
		if row.Object.IsZero() {
			row.Object = git.ZeroObject
		} else {
			row.Type = git.ObjectTypeCommit
		}
		if branch, ok := git.BranchFromRefName(name); ok {
			row.Head = f.head != "" && branch == f.head && r.target == ""
			if up, ok := f.upstreams[branch]; ok {
				row.Remote = up.remote
				row.RemoteRef = branch.RefName()
				row.Upstream = git.RefName("refs/remotes/" + string(up.remote) + "/" + string(branch))
				if f.remotes[up.remote][branch] == row.Object {
					row.Track = git.TrackInSync
				} else {
					row.Track = git.TrackDiverged
				}
			}
		}
		rows = append(rows, git.FormatRefRow(row))
	}
	return strings.Join(rows, "\n"), nil
}

func (f *FakeBackend) ValidateBranchName(_ context.Context, name string) error {
	if err := f.enter("ValidateBranchName"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	bad := name == "" ||
		strings.HasPrefix(name, "-") ||
		strings.HasPrefix(name, "/") ||
		strings.HasSuffix(name, "/") ||
		strings.HasSuffix(name, ".") ||
		strings.HasSuffix(name, ".lock") ||
		strings.Contains(name, "..") ||
		strings.Contains(name, "//") ||
		strings.Contains(name, "@{") ||
		strings.ContainsAny(name, " ~^:?*[\\\t\n")
	if bad {
		return commandError("check-ref-format", []string{"--branch", name}, "fatal: '"+name+"' is not a valid branch name", 128)
	}
	return nil
}

func (f *FakeBackend) CreateBranch(_ context.Context, name git.BranchName, base git.ObjectName) error {
	if err := f.enter("CreateBranch"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	if _, ok := f.refs[name.RefName()]; ok {
		return errors.NewPreconditionFailedError(string(name.RefName()),
			commandError("branch", []string{string(name)}, "fatal: a branch named '"+string(name)+"' already exists", 128))
	}
	if err := f.checkPathLocked("branch", name.RefName()); err != nil {
		return err
	}
	f.refs[name.RefName()] = fakeRef{object: base}
	f.record("branch %s %s", name, base)
	return nil
}

func (f *FakeBackend) SwitchBranch(_ context.Context, name git.BranchName) error {
	if err := f.enter("SwitchBranch"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	if _, ok := f.refs[name.RefName()]; !ok {
		return commandError("switch", []string{string(name)}, "fatal: invalid reference: "+string(name), 128)
	}
	f.head = name
	f.record("switch %s", name)
	return nil
}

func (f *FakeBackend) CreateSymref(_ context.Context, name, target git.RefName, _ string) error {
	if err := f.enter("CreateSymref"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	if err := f.checkPathLocked("symbolic-ref", name); err != nil {
		return err
	}
	f.refs[name] = fakeRef{target: target}
	f.record("symbolic-ref %s %s", name, target)
	return nil
}

func (f *FakeBackend) DeleteSymref(_ context.Context, name git.RefName) error {
	if err := f.enter("DeleteSymref"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	r, ok := f.refs[name]
	if !ok || r.target == "" {
		return commandError("symbolic-ref", []string{"--delete", string(name)}, "fatal: Cannot delete "+string(name)+", not a symbolic ref", 1)
	}
	delete(f.refs, name)
	f.record("symbolic-ref --delete %s", name)
	return nil
}

func (f *FakeBackend) CreateRef(ctx context.Context, name git.RefName, object git.ObjectName) error {
	return f.UpdateRef(ctx, name, object, git.ZeroObject)
}

func (f *FakeBackend) UpdateRef(_ context.Context, name git.RefName, newObject, expected git.ObjectName) error {
	if err := f.enter("UpdateRef"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	if err := f.checkPathLocked("update-ref", name); err != nil {
		return err
	}
	if err := f.checkExpectedLocked(name, expected); err != nil {
		return err
	}
	f.refs[name] = fakeRef{object: newObject}
	f.record("update-ref %s %s", name, newObject)
	return nil
}

func (f *FakeBackend) DeleteRef(_ context.Context, name git.RefName, expected git.ObjectName) error {
	if err := f.enter("DeleteRef"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	if err := f.checkExpectedLocked(name, expected); err != nil {
		return err
	}
	delete(f.refs, name)
	f.record("update-ref -d %s", name)
	return nil
}

// checkPathLocked fails like git when name and an existing ref would need
// to be both a file and a directory.
func (f *FakeBackend) checkPathLocked(method string, name git.RefName) error {
	for other := range f.refs {
		if strings.HasPrefix(string(other), string(name)+"/") || strings.HasPrefix(string(name), string(other)+"/") {
			stderr := fmt.Sprintf("fatal: cannot lock ref '%s': '%s' exists; cannot create '%s'", name, other, name)
			return errors.NewRefConflictError(string(name), string(other), commandError(method, []string{string(name)}, stderr, 128))
		}
	}
	return nil
}

func (f *FakeBackend) checkExpectedLocked(name git.RefName, expected git.ObjectName) error {
	current := f.refs[name].object
	if f.refs[name].target != "" {
		current = ""
	}
	if current.IsZero() && expected.IsZero() {
		return nil
	}
	if current == expected {
		return nil
	}
	stderr := fmt.Sprintf("fatal: cannot lock ref '%s': is at %s but expected %s", name, current, expected)
	return errors.NewPreconditionFailedError(string(name), commandError("update-ref", []string{string(name)}, stderr, 128))
}

// RebaseOnto moves branch to a synthetic object derived from its base and
// old head, or leaves it alone when it already sits on the base.
func (f *FakeBackend) RebaseOnto(_ context.Context, branch git.BranchName) error {
	if err := f.enter("RebaseOnto"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	base := f.resolveLocked(branch.BaseRefName())
	start := f.resolveLocked(branch.StartRefName())
	head := f.resolveLocked(branch.RefName())
	if base.IsZero() || start.IsZero() || head.IsZero() {
		return commandError("rebase", []string{string(branch)}, "fatal: invalid upstream", 128)
	}
	f.head = branch
	if base == start {
		return nil
	}
	f.refs[branch.RefName()] = fakeRef{object: FakeObject("rebase:" + string(base) + ":" + string(head))}
	f.record("rebase %s", branch)
	return nil
}

func (f *FakeBackend) Push(_ context.Context, branch git.BranchName, remote git.RemoteName, expected git.ObjectName) error {
	if err := f.enter("Push"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	head := f.resolveLocked(branch.RefName())
	if head.IsZero() {
		return commandError("push", []string{string(remote), string(branch)}, "error: src refspec does not match any", 1)
	}
	current := f.remoteLocked(remote)[branch]
	if current != expected && !(current.IsZero() && expected.IsZero()) {
		return errors.NewPreconditionFailedError(string(branch.RefName()),
			commandError("push", []string{string(remote), string(branch)}, " ! [rejected] "+string(branch)+" (stale info)", 1))
	}
	f.remoteLocked(remote)[branch] = head
	f.upstreams[branch] = fakeUpstream{remote: remote}
	f.record("push %s %s", remote, branch)
	return nil
}

func (f *FakeBackend) FetchAllPrune(context.Context) error {
	if err := f.enter("FetchAllPrune"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()
	f.record("fetch --all --prune")
	return nil
}

// ForkPoint answers from SetForkPoint, defaulting to the base's current object.
func (f *FakeBackend) ForkPoint(_ context.Context, base, branch git.RefName) (git.ObjectName, error) {
	if err := f.enter("ForkPoint"); err != nil {
		f.mu.Unlock()
		return "", err
	}
	defer f.mu.Unlock()

	if obj, ok := f.forkPts[string(base)+".."+string(branch)]; ok {
		return obj, nil
	}
	obj := f.resolveLocked(base)
	if obj.IsZero() || f.resolveLocked(branch).IsZero() {
		return "", commandError("merge-base", []string{string(base), string(branch)}, "fatal: Not a valid object name", 128)
	}
	return obj, nil
}

func (f *FakeBackend) ConfigAdd(_ context.Context, key, value string) error {
	if err := f.enter("ConfigAdd"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	for _, v := range f.config[key] {
		if v == value {
			return nil
		}
	}
	f.config[key] = append(f.config[key], value)
	f.record("config --add %s %s", key, value)
	return nil
}

func (f *FakeBackend) ConfigUnsetMatching(_ context.Context, key, value string) error {
	if err := f.enter("ConfigUnsetMatching"); err != nil {
		f.mu.Unlock()
		return err
	}
	defer f.mu.Unlock()

	kept := f.config[key][:0]
	removed := false
	for _, v := range f.config[key] {
		if v == value {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	if !removed {
		return nil
	}
	if len(kept) == 0 {
		delete(f.config, key)
	} else {
		f.config[key] = kept
	}
	f.record("config --unset-all %s %s", key, value)
	return nil
}
