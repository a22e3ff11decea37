package git

import (
	"sort"
	"strings"
)

// NewSnapshot builds a snapshot from already decoded refs.
func NewSnapshot(refs []Ref) (*Snapshot, error) {
	rows := make([]string, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, FormatRefRow(r))
	}
	return ParseSnapshot(strings.Join(rows, recordSeparator))
}

// Refs returns every ref sorted by name.
func (s *Snapshot) Refs() []Ref {
	s.check()
	out := make([]Ref, 0, len(s.refs))
	for _, r := range s.refs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
