package git_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/errors"
	"stacker.dev/stacker/internal/git"
	"stacker.dev/stacker/testhelpers"
)

func TestCLIBackendQueryRefs(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()

	mainSHA, err := scene.Repo.GetRevision("main")
	require.NoError(t, err)

	require.NoError(t, backend.CreateSymref(ctx, "refs/stacker/base/feat", "refs/heads/main", "test"))
	require.NoError(t, backend.CreateSymref(ctx, "refs/stacker/base/orphan", "refs/heads/gone", "test"))

	snap, err := git.TakeSnapshot(ctx, backend)
	require.NoError(t, err)

	head, ok := snap.Head()
	require.True(t, ok)
	require.Equal(t, git.BranchName("main"), head)

	main, ok := snap.Branch("main")
	require.True(t, ok)
	require.Equal(t, git.ObjectName(mainSHA), main.Object)
	require.Equal(t, git.ObjectTypeCommit, main.Type)
	require.Equal(t, git.RemoteName("origin"), main.Remote)
	require.Equal(t, git.TrackInSync, main.Track)

	base, ok := snap.Ref("refs/stacker/base/feat")
	require.True(t, ok)
	require.Equal(t, git.RefName("refs/heads/main"), base.SymrefTarget)
	require.Equal(t, git.ObjectName(mainSHA), base.Object)

	orphan, ok := snap.Ref("refs/stacker/base/orphan")
	require.True(t, ok, "dangling symrefs are listed")
	require.False(t, orphan.Exists())
	require.Equal(t, git.RefName("refs/heads/gone"), orphan.SymrefTarget)

	require.Equal(t, []git.BranchName{"feat", "orphan"}, snap.TrackedBranches())
}

func TestCLIBackendRefCAS(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	require.NoError(t, scene.Repo.CreateChangeAndCommit("2", "2"))
	backend := scene.Backend()

	c2, err := scene.Repo.GetRevision("HEAD")
	require.NoError(t, err)
	c1, err := scene.Repo.GetRevision("HEAD~1")
	require.NoError(t, err)
	name := git.RefName("refs/stacker/start/x")

	t.Run("create requires absence", func(t *testing.T) {
		require.NoError(t, backend.CreateRef(ctx, name, git.ObjectName(c1)))
		err := backend.CreateRef(ctx, name, git.ObjectName(c2))
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
		require.ErrorIs(t, err, errors.ErrBackendFailure)
		got, _ := scene.Repo.GetRevision(string(name))
		require.Equal(t, c1, got)
	})

	t.Run("update with stale expectation fails", func(t *testing.T) {
		err := backend.UpdateRef(ctx, name, git.ObjectName(c2), git.ObjectName(c2))
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
		got, _ := scene.Repo.GetRevision(string(name))
		require.Equal(t, c1, got)
	})

	t.Run("update with matching expectation", func(t *testing.T) {
		require.NoError(t, backend.UpdateRef(ctx, name, git.ObjectName(c2), git.ObjectName(c1)))
		got, _ := scene.Repo.GetRevision(string(name))
		require.Equal(t, c2, got)
	})

	t.Run("delete with stale expectation fails", func(t *testing.T) {
		err := backend.DeleteRef(ctx, name, git.ObjectName(c1))
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
		require.True(t, scene.Repo.RefExists(string(name)))
	})

	t.Run("delete with matching expectation", func(t *testing.T) {
		require.NoError(t, backend.DeleteRef(ctx, name, git.ObjectName(c2)))
		require.False(t, scene.Repo.RefExists(string(name)))
	})

	t.Run("delete of a missing ref fails", func(t *testing.T) {
		err := backend.DeleteRef(ctx, name, git.ObjectName(c2))
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
	})
}

func TestCLIBackendSymrefs(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()

	require.NoError(t, backend.CreateSymref(ctx, "refs/stacker/base/x", "refs/heads/main", "test"))
	target, err := scene.Repo.SymbolicRef("refs/stacker/base/x")
	require.NoError(t, err)
	require.Equal(t, "refs/heads/main", target)

	require.NoError(t, backend.DeleteSymref(ctx, "refs/stacker/base/x"))
	require.False(t, scene.Repo.RefExists("refs/stacker/base/x"))

	err = backend.DeleteSymref(ctx, "refs/stacker/base/x")
	require.ErrorIs(t, err, errors.ErrBackendFailure)
}

func TestCLIBackendRefPathConflicts(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()

	mainSHA, err := scene.Repo.GetRevision("main")
	require.NoError(t, err)
	main := git.ObjectName(mainSHA)

	require.NoError(t, backend.CreateSymref(ctx, "refs/stacker/base/feat", "refs/heads/main", "test"))
	require.NoError(t, backend.CreateRef(ctx, "refs/stacker/start/feat", main))

	t.Run("symref below an existing ref", func(t *testing.T) {
		err := backend.CreateSymref(ctx, "refs/stacker/base/feat/x", "refs/heads/main", "test")
		require.ErrorIs(t, err, errors.ErrRefConflict)
		require.ErrorIs(t, err, errors.ErrBackendFailure)
		require.NotErrorIs(t, err, errors.ErrPreconditionFailed)
		require.False(t, scene.Repo.RefExists("refs/stacker/base/feat/x"))
	})

	t.Run("ref below an existing ref", func(t *testing.T) {
		err := backend.CreateRef(ctx, "refs/stacker/start/feat/x", main)
		require.ErrorIs(t, err, errors.ErrRefConflict)
		require.NotErrorIs(t, err, errors.ErrPreconditionFailed)
		require.False(t, scene.Repo.RefExists("refs/stacker/start/feat/x"))
	})

	t.Run("ref above an existing ref", func(t *testing.T) {
		require.NoError(t, backend.CreateRef(ctx, "refs/stacker/remote/a/b", main))
		err := backend.CreateRef(ctx, "refs/stacker/remote/a", main)
		require.ErrorIs(t, err, errors.ErrRefConflict)
		require.NotErrorIs(t, err, errors.ErrPreconditionFailed)
	})
}

func TestCLIBackendBranches(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()
	mainSHA, err := scene.Repo.GetRevision("main")
	require.NoError(t, err)

	t.Run("validate", func(t *testing.T) {
		require.NoError(t, backend.ValidateBranchName(ctx, "feat/ok"))
		require.Error(t, backend.ValidateBranchName(ctx, "bad..name"))
		require.Error(t, backend.ValidateBranchName(ctx, "trailing/"))
	})

	t.Run("create and switch", func(t *testing.T) {
		require.NoError(t, backend.CreateBranch(ctx, "feat/a", git.ObjectName(mainSHA)))
		require.NoError(t, backend.SwitchBranch(ctx, "feat/a"))
		current, err := scene.Repo.CurrentBranchName()
		require.NoError(t, err)
		require.Equal(t, "feat/a", current)
	})

	t.Run("create existing", func(t *testing.T) {
		err := backend.CreateBranch(ctx, "feat/a", git.ObjectName(mainSHA))
		require.ErrorIs(t, err, errors.ErrBackendFailure)
	})

	t.Run("switch to missing", func(t *testing.T) {
		err := backend.SwitchBranch(ctx, "nope")
		require.ErrorIs(t, err, errors.ErrBackendFailure)
		var gitErr *errors.GitCommandError
		require.ErrorAs(t, err, &gitErr)
		require.NotZero(t, gitErr.ExitCode)
	})
}

func TestCLIBackendConfig(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()

	require.NoError(t, backend.ConfigAdd(ctx, "transfer.hideRefs", "refs/stacker/"))
	require.NoError(t, backend.ConfigAdd(ctx, "transfer.hideRefs", "refs/stacker/"))
	require.NoError(t, backend.ConfigAdd(ctx, "transfer.hideRefs", "refs/other/"))
	require.Equal(t, []string{"refs/stacker/", "refs/other/"}, scene.Repo.ConfigGetAll("transfer.hideRefs"))

	require.NoError(t, backend.ConfigUnsetMatching(ctx, "transfer.hideRefs", "refs/stacker/"))
	require.Equal(t, []string{"refs/other/"}, scene.Repo.ConfigGetAll("transfer.hideRefs"))

	require.NoError(t, backend.ConfigUnsetMatching(ctx, "transfer.hideRefs", "refs/stacker/"))
	require.NoError(t, backend.ConfigUnsetMatching(ctx, "log.excludeDecoration", "refs/stacker/"))
}

func TestCLIBackendPush(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()

	require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feat/a"))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("a", "a"))
	sha, err := scene.Repo.GetRevision("feat/a")
	require.NoError(t, err)

	t.Run("first push requires absence", func(t *testing.T) {
		require.NoError(t, backend.Push(ctx, "feat/a", "origin", git.ZeroObject))
		remote, err := scene.Repo.GetRevision("refs/remotes/origin/feat/a")
		require.NoError(t, err)
		require.Equal(t, sha, remote)
	})

	t.Run("stale lease is rejected", func(t *testing.T) {
		clone := scene.Clone(t)
		require.NoError(t, clone.RunGitCommand("switch", "feat/a"))
		require.NoError(t, clone.CreateChangeAndCommit("b", "b"))
		require.NoError(t, clone.RunGitCommand("push", "origin", "feat/a"))

		require.NoError(t, scene.Repo.CreateChangeAndCommit("c", "c"))
		err := backend.Push(ctx, "feat/a", "origin", git.ObjectName(sha))
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
	})
}

func TestCLIBackendForkPoint(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()

	forkSHA, err := scene.Repo.GetRevision("main")
	require.NoError(t, err)
	require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feat/a"))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("a", "a"))
	require.NoError(t, scene.Repo.CheckoutBranch("main"))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("m", "m"))

	got, err := backend.ForkPoint(ctx, "refs/heads/main", "refs/heads/feat/a")
	require.NoError(t, err)
	require.Equal(t, git.ObjectName(forkSHA), got)

	t.Run("falls back to merge base without reflog", func(t *testing.T) {
		require.NoError(t, scene.Repo.RunGitCommand("reflog", "expire", "--expire=now", "--all"))
		got, err := backend.ForkPoint(ctx, "refs/heads/main", "refs/heads/feat/a")
		require.NoError(t, err)
		require.Equal(t, git.ObjectName(forkSHA), got)
	})
}

func TestCLIBackendRebaseOnto(t *testing.T) {
	ctx := context.Background()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	backend := scene.Backend()

	start, err := scene.Repo.GetRevision("main")
	require.NoError(t, err)
	require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feat/a"))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("a", "a"))
	require.NoError(t, backend.CreateSymref(ctx, "refs/stacker/base/feat/a", "refs/heads/main", "test"))
	require.NoError(t, backend.CreateRef(ctx, "refs/stacker/start/feat/a", git.ObjectName(start)))

	require.NoError(t, scene.Repo.CheckoutBranch("main"))
	require.NoError(t, scene.Repo.CreateChangeAndCommit("m", "m"))
	mainSHA, err := scene.Repo.GetRevision("main")
	require.NoError(t, err)
	require.NoError(t, scene.Repo.CheckoutBranch("feat/a"))

	require.NoError(t, backend.RebaseOnto(ctx, "feat/a"))
	parent, err := scene.Repo.GetRevision("feat/a~1")
	require.NoError(t, err)
	require.Equal(t, mainSHA, parent)

	t.Run("conflict", func(t *testing.T) {
		require.NoError(t, backend.UpdateRef(ctx, "refs/stacker/start/feat/a", git.ObjectName(mainSHA), git.ObjectName(start)))
		require.NoError(t, scene.Repo.CheckoutBranch("main"))
		require.NoError(t, scene.Repo.CreateChangeAndCommit("main side", "a"))
		require.NoError(t, scene.Repo.CheckoutBranch("feat/a"))
		require.NoError(t, scene.Repo.CreateChangeAndCommit("feat side", "a"))

		err := backend.RebaseOnto(ctx, "feat/a")
		require.ErrorIs(t, err, errors.ErrRebaseConflict)
		require.True(t, scene.Repo.RebaseInProgress())
	})

	t.Run("canceled context is not a conflict", func(t *testing.T) {
		require.True(t, scene.Repo.RebaseInProgress())
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := backend.RebaseOnto(canceled, "feat/a")
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, errors.ErrBackendFailure)
		require.NotErrorIs(t, err, errors.ErrRebaseConflict)
	})
}
