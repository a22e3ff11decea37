package git

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository wraps a go-git repository
type Repository struct {
	*git.Repository
	root string
}

// OpenRepository opens the repository containing path, searching parent directories.
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	root := absPath
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &Repository{
		Repository: repo,
		root:       root,
	}, nil
}

// RepoRoot returns the top level directory of the worktree containing dir.
func RepoRoot(dir string) (string, error) {
	repo, err := OpenRepository(dir)
	if err != nil {
		return "", err
	}
	return repo.Root(), nil
}

// Root returns the worktree root
func (r *Repository) Root() string {
	return r.root
}

// DanglingSymrefs returns the symbolic refs under prefix whose target does not
// resolve. git for-each-ref skips such refs, so they are surfaced here with a
// zero object.
func (r *Repository) DanglingSymrefs(prefix string) ([]Ref, error) {
	iter, err := r.Storer.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	defer iter.Close()

	var out []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.SymbolicReference || !strings.HasPrefix(ref.Name().String(), prefix) {
			return nil
		}
		if _, err := r.Storer.Reference(ref.Target()); err == nil {
			return nil
		} else if err != plumbing.ErrReferenceNotFound {
			return err
		}
		out = append(out, Ref{
			Name:         RefName(ref.Name()),
			Object:       ZeroObject,
			SymrefTarget: RefName(ref.Target()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan symbolic refs: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MergeBase returns the best common ancestor of two refs.
func (r *Repository) MergeBase(ref1, ref2 RefName) (ObjectName, error) {
	hash1, err := r.resolveRefHash(ref1)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref1, err)
	}
	hash2, err := r.resolveRefHash(ref2)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref2, err)
	}

	commit1, err := r.CommitObject(hash1)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", hash1, err)
	}
	commit2, err := r.CommitObject(hash2)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", hash2, err)
	}

	mergeBases, err := commit1.MergeBase(commit2)
	if err != nil {
		return "", fmt.Errorf("failed to find merge base: %w", err)
	}
	if len(mergeBases) == 0 {
		return "", fmt.Errorf("no merge base between %s and %s", ref1, ref2)
	}
	return ObjectName(mergeBases[0].Hash.String()), nil
}

func (r *Repository) resolveRefHash(name RefName) (plumbing.Hash, error) {
	ref, err := r.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}
