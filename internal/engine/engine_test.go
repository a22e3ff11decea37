package engine_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"stacker.dev/stacker/internal/engine"
	"stacker.dev/stacker/internal/errors"
	"stacker.dev/stacker/internal/git"
	"stacker.dev/stacker/testhelpers"
)

var (
	c1 = testhelpers.FakeObject("c1")
	c2 = testhelpers.FakeObject("c2")
	c3 = testhelpers.FakeObject("c3")
)

// newMainRepo returns a fake repository with HEAD on main at c1, tracking origin/main.
func newMainRepo(t *testing.T) (*testhelpers.FakeBackend, engine.Engine) {
	t.Helper()
	fake := testhelpers.NewFakeBackend()
	fake.SetBranch("main", c1)
	fake.SetHead("main")
	fake.SetUpstream("main", "origin")
	fake.SetRemoteBranch("origin", "main", c1)
	return fake, engine.New(engine.Options{Backend: fake})
}

// track records feat as started from base at start.
func track(fake *testhelpers.FakeBackend, feat, base git.BranchName, start git.ObjectName) {
	fake.SetSymref(feat.BaseRefName(), base.RefName())
	fake.SetRef(feat.StartRefName(), start)
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("adds both config values", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		require.NoError(t, eng.Init(ctx))
		require.Equal(t, []string{"refs/stacker/"}, fake.ConfigValues("transfer.hideRefs"))
		require.Equal(t, []string{"refs/stacker/"}, fake.ConfigValues("log.excludeDecoration"))
	})

	t.Run("is idempotent", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		require.NoError(t, eng.Init(ctx))
		fake.ResetJournal()
		require.NoError(t, eng.Init(ctx))
		require.Empty(t, fake.Mutations)
		require.Len(t, fake.ConfigValues("transfer.hideRefs"), 1)
	})

	t.Run("does not touch refs", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		require.NoError(t, eng.Init(ctx))
		for _, m := range fake.Mutations {
			require.Contains(t, m, "config")
		}
	})

	t.Run("surfaces backend failure", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.FailOn("ConfigAdd", errors.NewGitCommandError("git", []string{"config"}, "", "error: could not lock config file", 255, nil))
		err := eng.Init(ctx)
		require.ErrorIs(t, err, errors.ErrBackendFailure)
	})
}

func TestClean(t *testing.T) {
	ctx := context.Background()

	t.Run("removes what init added", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		require.NoError(t, eng.Init(ctx))
		require.NoError(t, eng.Clean(ctx))
		require.Empty(t, fake.ConfigValues("transfer.hideRefs"))
		require.Empty(t, fake.ConfigValues("log.excludeDecoration"))
	})

	t.Run("succeeds when nothing matches", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		require.NoError(t, eng.Clean(ctx))
		require.Empty(t, fake.Mutations)
	})

	t.Run("keeps tracking refs", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		_, err := eng.Start(ctx, "feat/a")
		require.NoError(t, err)
		require.NoError(t, eng.Clean(ctx))
		require.True(t, fake.HasRef("refs/stacker/base/feat/a"))
		require.True(t, fake.HasRef("refs/stacker/start/feat/a"))
	})
}

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("creates branch, base and start refs from HEAD", func(t *testing.T) {
		fake, eng := newMainRepo(t)

		result, err := eng.Start(ctx, "feat/a")
		require.NoError(t, err)
		require.Equal(t, engine.StartResult{Branch: "feat/a", Base: "main", Object: c1}, result)

		target, ok := fake.SymrefTarget("refs/stacker/base/feat/a")
		require.True(t, ok)
		require.Equal(t, git.RefName("refs/heads/main"), target)

		start, ok := fake.Object("refs/stacker/start/feat/a")
		require.True(t, ok)
		require.Equal(t, c1, start)

		head, ok := fake.Object("refs/heads/feat/a")
		require.True(t, ok)
		require.Equal(t, c1, head)
		require.Equal(t, git.BranchName("feat/a"), fake.Head())
		require.False(t, fake.HasRef("refs/stacker/remote/feat/a"))
	})

	t.Run("performs writes in order", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		_, err := eng.Start(ctx, "feat/a")
		require.NoError(t, err)
		require.Equal(t, []string{
			"branch feat/a " + string(c1),
			"switch feat/a",
			"symbolic-ref refs/stacker/base/feat/a refs/heads/main",
			"update-ref refs/stacker/start/feat/a " + string(c1),
		}, fake.Mutations)
	})

	t.Run("requires HEAD on a branch", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.SetHead("")
		_, err := eng.Start(ctx, "feat/a")
		require.ErrorIs(t, err, errors.ErrHeadNotDefined)
		require.Empty(t, fake.Mutations)
	})

	t.Run("rejects invalid names before writing", func(t *testing.T) {
		for _, name := range []string{"", "bad..name", "has space", "-dash", "x.lock"} {
			fake, eng := newMainRepo(t)
			_, err := eng.Start(ctx, name)
			require.ErrorIs(t, err, errors.ErrInvalidBranchName, name)
			require.Empty(t, fake.Mutations, name)
		}
	})

	t.Run("fails when branch already exists", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.SetBranch("feat/a", c2)
		_, err := eng.Start(ctx, "feat/a")
		require.ErrorIs(t, err, errors.ErrBackendFailure)
		require.False(t, fake.HasRef("refs/stacker/base/feat/a"))
		require.Empty(t, fake.Mutations)
	})

	t.Run("drops leftovers of a deleted parent path first", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		track(fake, "feat", "main", c1)

		result, err := eng.Start(ctx, "feat/x")
		require.NoError(t, err)
		require.Equal(t, []git.BranchName{"feat"}, result.Pruned)
		require.Equal(t, []string{
			"symbolic-ref --delete refs/stacker/base/feat",
			"update-ref -d refs/stacker/start/feat",
			"branch feat/x " + string(c1),
			"switch feat/x",
			"symbolic-ref refs/stacker/base/feat/x refs/heads/main",
			"update-ref refs/stacker/start/feat/x " + string(c1),
		}, fake.Mutations)

		fake.ResetJournal()
		report, err := eng.Fix(ctx, engine.FixOptions{})
		require.NoError(t, err)
		require.False(t, report.Changed())
		require.Empty(t, fake.Mutations)
	})

	t.Run("drops leftovers of a deleted child path first", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.SetRef("refs/stacker/remote/feat/x", c2)

		result, err := eng.Start(ctx, "feat")
		require.NoError(t, err)
		require.Equal(t, []git.BranchName{"feat/x"}, result.Pruned)
		require.False(t, fake.HasRef("refs/stacker/remote/feat/x"))
		require.True(t, fake.HasRef("refs/stacker/base/feat"))
	})

	t.Run("replaces its own leftovers", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		track(fake, "feat", "other", c3)

		result, err := eng.Start(ctx, "feat")
		require.NoError(t, err)
		require.Equal(t, []git.BranchName{"feat"}, result.Pruned)
		target, ok := fake.SymrefTarget("refs/stacker/base/feat")
		require.True(t, ok)
		require.Equal(t, git.RefName("refs/heads/main"), target)
		start, ok := fake.Object("refs/stacker/start/feat")
		require.True(t, ok)
		require.Equal(t, c1, start)
	})

	t.Run("path clash with a live branch fails before writing", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.SetBranch("feat", c2)
		track(fake, "feat", "main", c1)

		_, err := eng.Start(ctx, "feat/x")
		require.ErrorIs(t, err, errors.ErrRefConflict)
		require.Empty(t, fake.Mutations)
		require.Equal(t, git.BranchName("main"), fake.Head())
		require.True(t, fake.HasRef("refs/stacker/base/feat"))
	})

	t.Run("leaves partial state that fix completes", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.OnCall = func(method string) {
			if method == "CreateRef" || method == "UpdateRef" {
				fake.FailOn("UpdateRef", errors.NewGitCommandError("git", []string{"update-ref"}, "", "fatal: interrupted", 128, nil))
			}
		}
		_, err := eng.Start(ctx, "feat/a")
		require.ErrorIs(t, err, errors.ErrBackendFailure)
		require.True(t, fake.HasRef("refs/stacker/base/feat/a"))
		require.False(t, fake.HasRef("refs/stacker/start/feat/a"))

		fake.OnCall = nil
		fake.FailOn("UpdateRef", nil)
		report, err := eng.Fix(ctx, engine.FixOptions{})
		require.NoError(t, err)
		require.Equal(t, []git.BranchName{"feat/a"}, report.Healed)
		start, ok := fake.Object("refs/stacker/start/feat/a")
		require.True(t, ok)
		require.Equal(t, c1, start)
	})
}

func TestPush(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testhelpers.FakeBackend, engine.Engine) {
		fake, eng := newMainRepo(t)
		_, err := eng.Start(ctx, "feat/a")
		require.NoError(t, err)
		fake.SetBranch("feat/a", c2)
		fake.ResetJournal()
		return fake, eng
	}

	t.Run("first push expects nothing on the remote", func(t *testing.T) {
		fake, eng := setup(t)

		result, err := eng.Push(ctx)
		require.NoError(t, err)
		require.Equal(t, git.RemoteName("origin"), result.Remote)
		require.True(t, result.Expected.IsZero())

		pushed, ok := fake.RemoteBranch("origin", "feat/a")
		require.True(t, ok)
		require.Equal(t, c2, pushed)
		remote, ok := fake.Object("refs/stacker/remote/feat/a")
		require.True(t, ok)
		require.Equal(t, c2, remote)
	})

	t.Run("repeat push expects the cached object", func(t *testing.T) {
		_, eng := setup(t)
		_, err := eng.Push(ctx)
		require.NoError(t, err)

		result, err := eng.Push(ctx)
		require.NoError(t, err)
		require.Equal(t, c2, result.Expected)
		require.Equal(t, c2, result.Object)
	})

	t.Run("rejected push leaves remote ref untouched", func(t *testing.T) {
		fake, eng := setup(t)
		_, err := eng.Push(ctx)
		require.NoError(t, err)

		fake.SetRemoteBranch("origin", "feat/a", c3)
		fake.SetBranch("feat/a", testhelpers.FakeObject("c4"))

		_, err = eng.Push(ctx)
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
		remote, _ := fake.Object("refs/stacker/remote/feat/a")
		require.Equal(t, c2, remote)
	})

	t.Run("concurrent remote ref write fails the update", func(t *testing.T) {
		fake, eng := setup(t)
		fake.OnCall = func(method string) {
			if method == "UpdateRef" {
				fake.SetRef("refs/stacker/remote/feat/a", c3)
			}
		}
		_, err := eng.Push(ctx)
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
		remote, _ := fake.Object("refs/stacker/remote/feat/a")
		require.Equal(t, c3, remote)
	})

	t.Run("uses the base's remote", func(t *testing.T) {
		fake, eng := setup(t)
		fake.SetUpstream("main", "upstream")
		result, err := eng.Push(ctx)
		require.NoError(t, err)
		require.Equal(t, git.RemoteName("upstream"), result.Remote)
		_, ok := fake.RemoteBranch("upstream", "feat/a")
		require.True(t, ok)
	})

	t.Run("falls back to the configured default remote", func(t *testing.T) {
		fake := testhelpers.NewFakeBackend()
		fake.SetBranch("main", c1)
		fake.SetHead("main")
		eng := engine.New(engine.Options{Backend: fake, DefaultRemote: "mirror"})
		_, err := eng.Start(ctx, "feat/a")
		require.NoError(t, err)

		result, err := eng.Push(ctx)
		require.NoError(t, err)
		require.Equal(t, git.RemoteName("mirror"), result.Remote)
	})

	t.Run("requires a base symref", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.SetBranch("lonely", c1)
		fake.SetHead("lonely")
		_, err := eng.Push(ctx)
		var notFound *errors.RefNotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "refs/stacker/base/lonely", notFound.Name)
	})

	t.Run("requires the base branch to exist", func(t *testing.T) {
		fake, eng := setup(t)
		fake.RemoveBranch("main")
		_, err := eng.Push(ctx)
		require.ErrorIs(t, err, errors.ErrRefNotFound)
		require.Empty(t, fake.Mutations)
	})

	t.Run("requires HEAD", func(t *testing.T) {
		fake, eng := setup(t)
		fake.SetHead("")
		_, err := eng.Push(ctx)
		require.ErrorIs(t, err, errors.ErrHeadNotDefined)
	})
}

func TestRebase(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testhelpers.FakeBackend, engine.Engine) {
		fake, eng := newMainRepo(t)
		_, err := eng.Start(ctx, "feat/a")
		require.NoError(t, err)
		fake.SetBranch("feat/a", c2)
		fake.SetBranch("main", c3)
		fake.ResetJournal()
		return fake, eng
	}

	t.Run("moves start ref to the base", func(t *testing.T) {
		fake, eng := setup(t)
		result, err := eng.Rebase(ctx)
		require.NoError(t, err)
		require.Equal(t, engine.RebaseResult{Branch: "feat/a", Base: "main", OldStart: c1, NewStart: c3}, result)

		start, _ := fake.Object("refs/stacker/start/feat/a")
		require.Equal(t, c3, start)
		head, _ := fake.Object("refs/heads/feat/a")
		require.NotEqual(t, c2, head)
	})

	t.Run("rerun without base movement changes nothing", func(t *testing.T) {
		fake, eng := setup(t)
		_, err := eng.Rebase(ctx)
		require.NoError(t, err)
		fake.ResetJournal()

		_, err = eng.Rebase(ctx)
		require.NoError(t, err)
		require.Contains(t, fake.Calls, "RebaseOnto")
		require.Empty(t, fake.Mutations)
		start, _ := fake.Object("refs/stacker/start/feat/a")
		require.Equal(t, c3, start)
	})

	t.Run("conflict keeps the old start", func(t *testing.T) {
		fake, eng := setup(t)
		fake.FailOn("RebaseOnto", errors.NewRebaseConflictError("feat/a", "conflict in test.txt"))
		_, err := eng.Rebase(ctx)
		require.ErrorIs(t, err, errors.ErrRebaseConflict)
		start, _ := fake.Object("refs/stacker/start/feat/a")
		require.Equal(t, c1, start)
	})

	t.Run("requires a start ref", func(t *testing.T) {
		fake, eng := setup(t)
		fake.RemoveRef("refs/stacker/start/feat/a")
		_, err := eng.Rebase(ctx)
		var notFound *errors.RefNotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "refs/stacker/start/feat/a", notFound.Name)
		require.NotContains(t, fake.Calls, "RebaseOnto")
	})

	t.Run("requires the base branch", func(t *testing.T) {
		fake, eng := setup(t)
		fake.RemoveBranch("main")
		_, err := eng.Rebase(ctx)
		require.ErrorIs(t, err, errors.ErrRefNotFound)
	})

	t.Run("start ref moved concurrently", func(t *testing.T) {
		fake, eng := setup(t)
		fake.OnCall = func(method string) {
			if method == "UpdateRef" {
				fake.SetRef("refs/stacker/start/feat/a", c2)
			}
		}
		_, err := eng.Rebase(ctx)
		require.ErrorIs(t, err, errors.ErrPreconditionFailed)
		start, _ := fake.Object("refs/stacker/start/feat/a")
		require.Equal(t, c2, start)
	})
}

func TestSync(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches everything", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		require.NoError(t, eng.Sync(ctx))
		require.Equal(t, []string{"fetch --all --prune"}, fake.Mutations)
	})

	t.Run("reports fetch failures", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.FailOn("FetchAllPrune", errors.NewGitCommandError("git", []string{"fetch"}, "", "fatal: unable to access", 128, nil))
		require.ErrorIs(t, eng.Sync(ctx), errors.ErrBackendFailure)
	})
}

func TestQueryFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("backend error is a query failure", func(t *testing.T) {
		fake, eng := newMainRepo(t)
		fake.FailOn("QueryRefs", stderrors.New("boom"))
		_, err := eng.Start(ctx, "feat/a")
		require.ErrorIs(t, err, errors.ErrRefQueryFailed)
	})
}
