package testhelpers

import (
	"path/filepath"
	"testing"

	"stacker.dev/stacker/internal/git"
)

// Scene is a temporary repository with a bare "origin" remote next to it.
// Nothing in a Scene depends on the process working directory.
type Scene struct {
	Dir       string
	Repo      *GitRepo
	RemoteDir string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene. Cleanup is handled by t.TempDir.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "repo")

	repo, err := NewGitRepo(dir)
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}
	remoteDir, err := repo.CreateBareRemote("origin")
	if err != nil {
		t.Fatalf("Failed to create remote: %v", err)
	}

	scene := &Scene{
		Dir:       dir,
		Repo:      repo,
		RemoteDir: remoteDir,
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return scene
}

// Backend returns a git CLI backend bound to the scene's repository.
func (s *Scene) Backend() *git.CLIBackend {
	return git.NewCLIBackend(git.CLIOptions{
		WorkDir: s.Dir,
		Env:     GitEnv,
	})
}

// Clone makes a second working copy of origin, e.g. to race a push.
func (s *Scene) Clone(t *testing.T) *GitRepo {
	t.Helper()
	clone, err := CloneGitRepo(s.RemoteDir, filepath.Join(t.TempDir(), "clone"))
	if err != nil {
		t.Fatalf("Failed to clone remote: %v", err)
	}
	return clone
}

// BasicSceneSetup creates a single commit on main and publishes it to origin.
func BasicSceneSetup(scene *Scene) error {
	if err := scene.Repo.CreateChangeAndCommit("1", "1"); err != nil {
		return err
	}
	return scene.Repo.PushBranch("origin", "main")
}
