package git

import (
	"context"
	"sort"
	"strings"

	"stacker.dev/stacker/internal/errors"
)

// RefFields are the for-each-ref format atoms of one ref listing row, in order.
var RefFields = []string{
	"%(refname)",
	"%(if)%(HEAD)%(then)true%(else)false%(end)",
	"%(objectname)",
	"%(objecttype)",
	"%(upstream:trackshort)",
	"%(upstream:remotename)",
	"%(upstream:remoteref)",
	"%(symref)",
	"%(upstream)",
}

const (
	fieldSeparator  = "\x00"
	recordSeparator = "\n"
)

// RefFormat is the for-each-ref --format argument producing NUL separated fields.
var RefFormat = strings.Join(RefFields, "%00")

// FormatRefRow renders a Ref the way for-each-ref prints it with RefFormat.
func FormatRefRow(r Ref) string {
	head := "false"
	if r.Head {
		head = "true"
	}
	return strings.Join([]string{
		string(r.Name),
		head,
		string(r.Object),
		string(r.Type),
		string(r.Track),
		string(r.Remote),
		string(r.RemoteRef),
		string(r.SymrefTarget),
		string(r.Upstream),
	}, fieldSeparator)
}

// Snapshot is an immutable view of every ref at one point in time.
//
// Once the caller starts mutating the repository it must Consume the snapshot;
// reading a consumed snapshot panics with errors.ErrStaleSnapshot.
type Snapshot struct {
	refs     map[RefName]Ref
	head     BranchName
	hasHead  bool
	consumed bool
}

// TakeSnapshot lists all refs through the backend and decodes them.
func TakeSnapshot(ctx context.Context, backend Backend) (*Snapshot, error) {
	out, err := backend.QueryRefs(ctx)
	if err != nil {
		return nil, &errors.RefQueryError{Err: err}
	}
	return ParseSnapshot(out)
}

// ParseSnapshot decodes the output of for-each-ref --format=RefFormat.
func ParseSnapshot(out string) (*Snapshot, error) {
	s := &Snapshot{refs: make(map[RefName]Ref)}
	for i, row := range strings.Split(out, recordSeparator) {
		row = strings.TrimSuffix(row, "\r")
		if row == "" {
			continue
		}
		ref, err := parseRefRow(i+1, row)
		if err != nil {
			return nil, err
		}
		if _, dup := s.refs[ref.Name]; dup {
			return nil, errors.NewParseError(i+1, row, "duplicate ref")
		}
		if ref.Head {
			if s.hasHead {
				return nil, errors.NewParseError(i+1, row, "more than one HEAD ref")
			}
			branch, ok := BranchFromRefName(ref.Name)
			if !ok {
				return nil, errors.NewParseError(i+1, row, "HEAD is not a branch")
			}
			s.head, s.hasHead = branch, true
		}
		s.refs[ref.Name] = ref
	}
	return s, nil
}

func parseRefRow(line int, row string) (Ref, error) {
	fields := strings.Split(row, fieldSeparator)
	if len(fields) != len(RefFields) {
		return Ref{}, errors.NewParseError(line, row, "unexpected field count")
	}
	if fields[0] == "" {
		return Ref{}, errors.NewParseError(line, row, "empty ref name")
	}

	var head bool
	switch fields[1] {
	case "true":
		head = true
	case "false":
	default:
		return Ref{}, errors.NewParseError(line, row, "bad HEAD flag")
	}

	objType, ok := parseObjectType(fields[3])
	if !ok {
		return Ref{}, errors.NewParseError(line, row, "unknown object type")
	}
	track, ok := parseTrackState(fields[4])
	if !ok {
		return Ref{}, errors.NewParseError(line, row, "unknown track state")
	}

	return Ref{
		Name:         RefName(fields[0]),
		Head:         head,
		Object:       ObjectName(fields[2]),
		Type:         objType,
		Track:        track,
		Remote:       RemoteName(fields[5]),
		RemoteRef:    RefName(fields[6]),
		SymrefTarget: RefName(fields[7]),
		Upstream:     RefName(fields[8]),
	}, nil
}

// Consume marks the snapshot stale. Later reads panic.
func (s *Snapshot) Consume() {
	s.consumed = true
}

func (s *Snapshot) check() {
	if s.consumed {
		panic(errors.ErrStaleSnapshot)
	}
}

// Ref looks up a ref by its full name.
func (s *Snapshot) Ref(name RefName) (Ref, bool) {
	s.check()
	r, ok := s.refs[name]
	return r, ok
}

// Head returns the branch HEAD is attached to.
func (s *Snapshot) Head() (BranchName, bool) {
	s.check()
	return s.head, s.hasHead
}

// Branch looks up refs/heads/<b>.
func (s *Snapshot) Branch(b BranchName) (Ref, bool) {
	return s.Ref(b.RefName())
}

// Conflicts returns, sorted, the refs that keep name from being created
// because one of the two names is a directory of the other.
func (s *Snapshot) Conflicts(name RefName) []RefName {
	s.check()
	var out []RefName
	for other := range s.refs {
		if strings.HasPrefix(string(other), string(name)+"/") || strings.HasPrefix(string(name), string(other)+"/") {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TrackedBranches returns, sorted and without duplicates, every branch that
// has at least one bookkeeping ref.
func (s *Snapshot) TrackedBranches() []BranchName {
	s.check()
	seen := make(map[BranchName]struct{})
	for name := range s.refs {
		if b, _, ok := TrackedBranchFromRefName(name); ok {
			seen[b] = struct{}{}
		}
	}
	out := make([]BranchName, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BaseInfo describes where a base symref points.
type BaseInfo struct {
	// Target is the ref the symref names.
	Target RefName
	// Branch is Target without refs/heads/, or Target itself when it is not a branch.
	Branch BranchName
	// Ref is the target ref; only meaningful when Exists.
	Ref    Ref
	Exists bool
}

// BaseBranch resolves b's base symref. ok is false when b has no base ref or
// the base ref is not symbolic.
func (s *Snapshot) BaseBranch(b BranchName) (BaseInfo, bool) {
	sym, found := s.Ref(b.BaseRefName())
	if !found || !sym.IsSymbolic() {
		return BaseInfo{}, false
	}
	info := BaseInfo{Target: sym.SymrefTarget}
	if branch, isBranch := BranchFromRefName(sym.SymrefTarget); isBranch {
		info.Branch = branch
	} else {
		info.Branch = BranchName(sym.SymrefTarget)
	}
	if target, found := s.Ref(sym.SymrefTarget); found && target.Exists() {
		info.Ref = target
		info.Exists = true
	}
	return info, true
}
