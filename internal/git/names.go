package git

import (
	"context"
	"strings"

	"stacker.dev/stacker/internal/errors"
)

// ObjectName is a hex object id as printed by git.
type ObjectName string

// RefName is a fully qualified ref name such as refs/heads/main.
type RefName string

// BranchName is a short branch name such as feat/x.
type BranchName string

// RemoteName is the name of a configured remote.
type RemoteName string

// RefCategory identifies one of the three bookkeeping refs kept per branch.
type RefCategory string

const (
	// ZeroObject is the all-zero object id git uses for "does not exist".
	ZeroObject ObjectName = "0000000000000000000000000000000000000000"

	// BranchRefPrefix is the namespace of local branches.
	BranchRefPrefix = "refs/heads/"

	// StackerRefPrefix is the namespace holding all bookkeeping refs.
	StackerRefPrefix = "refs/stacker/"

	CategoryBase   RefCategory = "base"
	CategoryStart  RefCategory = "start"
	CategoryRemote RefCategory = "remote"
)

// Categories lists the bookkeeping ref categories in the order they are created.
var Categories = []RefCategory{CategoryBase, CategoryStart, CategoryRemote}

// Prefix returns the ref prefix for the category, e.g. refs/stacker/base/.
func (c RefCategory) Prefix() string {
	return StackerRefPrefix + string(c) + "/"
}

// IsZero reports whether the object id denotes absence. Both the empty string
// and any all-zero id qualify, so repositories using longer hashes work too.
func (o ObjectName) IsZero() bool {
	return strings.Trim(string(o), "0") == ""
}

// Short returns the abbreviated object id.
func (o ObjectName) Short() string {
	if len(o) > 7 {
		return string(o[:7])
	}
	return string(o)
}

func (o ObjectName) String() string { return string(o) }

func (r RefName) String() string { return string(r) }

func (b BranchName) String() string { return string(b) }

func (r RemoteName) String() string { return string(r) }

// RefName returns refs/heads/<b>.
func (b BranchName) RefName() RefName {
	return RefName(BranchRefPrefix + string(b))
}

// BaseRefName returns the symbolic ref naming b's base branch.
func (b BranchName) BaseRefName() RefName {
	return b.TrackingRefName(CategoryBase)
}

// StartRefName returns the ref recording where b was forked from its base.
func (b BranchName) StartRefName() RefName {
	return b.TrackingRefName(CategoryStart)
}

// RemoteRefName returns the ref caching the last object pushed for b.
func (b BranchName) RemoteRefName() RefName {
	return b.TrackingRefName(CategoryRemote)
}

// TrackingRefName returns the bookkeeping ref of the given category for b.
func (b BranchName) TrackingRefName(c RefCategory) RefName {
	return RefName(c.Prefix() + string(b))
}

// BranchFromRefName strips refs/heads/ from a branch ref name.
func BranchFromRefName(name RefName) (BranchName, bool) {
	s := string(name)
	if !strings.HasPrefix(s, BranchRefPrefix) || len(s) == len(BranchRefPrefix) {
		return "", false
	}
	return BranchName(s[len(BranchRefPrefix):]), true
}

// TrackedBranchFromRefName extracts the branch and category from a bookkeeping
// ref name. Names outside refs/stacker/ or under an unknown category are rejected.
func TrackedBranchFromRefName(name RefName) (BranchName, RefCategory, bool) {
	s := string(name)
	for _, c := range Categories {
		prefix := c.Prefix()
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
			return BranchName(s[len(prefix):]), c, true
		}
	}
	return "", "", false
}

// CheckBranchName asks git whether raw is an acceptable branch name.
func CheckBranchName(ctx context.Context, backend Backend, raw string) (BranchName, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.NewInvalidBranchNameError(raw, nil)
	}
	if err := backend.ValidateBranchName(ctx, raw); err != nil {
		return "", errors.NewInvalidBranchNameError(raw, err)
	}
	return BranchName(raw), nil
}
