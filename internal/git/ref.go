package git

// ObjectType is the type of object a ref points at.
type ObjectType string

const (
	ObjectTypeNone   ObjectType = ""
	ObjectTypeCommit ObjectType = "commit"
	ObjectTypeTree   ObjectType = "tree"
	ObjectTypeBlob   ObjectType = "blob"
	ObjectTypeTag    ObjectType = "tag"
)

func parseObjectType(s string) (ObjectType, bool) {
	switch t := ObjectType(s); t {
	case ObjectTypeNone, ObjectTypeCommit, ObjectTypeTree, ObjectTypeBlob, ObjectTypeTag:
		return t, true
	}
	return "", false
}

// TrackState is the relation between a branch and its upstream, as printed
// by %(upstream:trackshort).
type TrackState string

const (
	TrackNone     TrackState = ""
	TrackAhead    TrackState = ">"
	TrackBehind   TrackState = "<"
	TrackDiverged TrackState = "<>"
	TrackInSync   TrackState = "="
)

func parseTrackState(s string) (TrackState, bool) {
	switch t := TrackState(s); t {
	case TrackNone, TrackAhead, TrackBehind, TrackDiverged, TrackInSync:
		return t, true
	}
	return "", false
}

// Ref is one row of the ref listing.
type Ref struct {
	Name         RefName
	Head         bool
	Object       ObjectName
	Type         ObjectType
	Track        TrackState
	Remote       RemoteName
	RemoteRef    RefName
	SymrefTarget RefName
	Upstream     RefName
}

// IsSymbolic reports whether the ref is a symbolic ref.
func (r Ref) IsSymbolic() bool {
	return r.SymrefTarget != ""
}

// Exists reports whether the ref resolves to an object. A symbolic ref whose
// target is gone is listed but does not exist.
func (r Ref) Exists() bool {
	return !r.Object.IsZero()
}
