// Package testhelpers provides testing utilities for stacker, including a
// scene system, git repository helpers, an in-memory backend and assertions.
package testhelpers

import (
	"sort"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

// ExpectBranches asserts that the repository has exactly the expected local branches.
func ExpectBranches(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()
	require.Equal(t, sorted(expected), listRefs(t, repo, "refs/heads/"), "Branches do not match")
}

// ExpectStackerRefs asserts the full names of every ref under refs/stacker/,
// including symbolic refs whose target is gone. Refs are read with go-git so
// the assertion does not depend on the code under test.
func ExpectStackerRefs(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()
	require.Equal(t, sorted(expected), listRefs(t, repo, "refs/stacker/"), "Stacker refs do not match")
}

func listRefs(t *testing.T, repo *GitRepo, prefix string) []string {
	t.Helper()
	r, err := gogit.PlainOpen(repo.Dir)
	require.NoError(t, err, "Failed to open repository")

	iter, err := r.Storer.IterReferences()
	require.NoError(t, err, "Failed to list refs")
	defer iter.Close()

	names := []string{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if strings.HasPrefix(name, prefix) {
			names = append(names, strings.TrimPrefix(name, prefixToTrim(prefix)))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(names)
	return names
}

// prefixToTrim keeps full names for bookkeeping refs and short names for branches.
func prefixToTrim(prefix string) string {
	if prefix == "refs/heads/" {
		return prefix
	}
	return ""
}

func sorted(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
