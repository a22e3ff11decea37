package engine

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/git"
)

// step is one backend mutation decided while planning.
type step struct {
	desc string
	run  func(ctx context.Context, b git.Backend) error
}

type plan []step

// apply consumes snap, so nothing decided after the first write can come
// from stale reads, then runs the steps in order, stopping at the first error.
func (e *engineImpl) apply(ctx context.Context, snap *git.Snapshot, p plan) error {
	snap.Consume()
	for _, s := range p {
		e.splog.Debug("%s", s.desc)
		if err := s.run(ctx, e.backend); err != nil {
			return fmt.Errorf("%s: %w", s.desc, err)
		}
	}
	return nil
}

func createBranch(name git.BranchName, object git.ObjectName) step {
	return step{
		desc: fmt.Sprintf("create branch %s at %s", name, object.Short()),
		run: func(ctx context.Context, b git.Backend) error {
			return b.CreateBranch(ctx, name, object)
		},
	}
}

func switchBranch(name git.BranchName) step {
	return step{
		desc: fmt.Sprintf("switch to %s", name),
		run: func(ctx context.Context, b git.Backend) error {
			return b.SwitchBranch(ctx, name)
		},
	}
}

func createSymref(name, target git.RefName, reason string) step {
	return step{
		desc: fmt.Sprintf("point %s at %s", name, target),
		run: func(ctx context.Context, b git.Backend) error {
			return b.CreateSymref(ctx, name, target, reason)
		},
	}
}

func deleteSymref(name git.RefName) step {
	return step{
		desc: fmt.Sprintf("delete %s", name),
		run: func(ctx context.Context, b git.Backend) error {
			return b.DeleteSymref(ctx, name)
		},
	}
}

func createRef(name git.RefName, object git.ObjectName) step {
	return step{
		desc: fmt.Sprintf("create %s at %s", name, object.Short()),
		run: func(ctx context.Context, b git.Backend) error {
			return b.CreateRef(ctx, name, object)
		},
	}
}

func updateRef(name git.RefName, object, expected git.ObjectName) step {
	return step{
		desc: fmt.Sprintf("move %s from %s to %s", name, expected.Short(), object.Short()),
		run: func(ctx context.Context, b git.Backend) error {
			return b.UpdateRef(ctx, name, object, expected)
		},
	}
}

func deleteRef(name git.RefName, expected git.ObjectName) step {
	return step{
		desc: fmt.Sprintf("delete %s at %s", name, expected.Short()),
		run: func(ctx context.Context, b git.Backend) error {
			return b.DeleteRef(ctx, name, expected)
		},
	}
}

func rebaseOnto(branch git.BranchName) step {
	return step{
		desc: fmt.Sprintf("rebase %s onto %s", branch, branch.BaseRefName()),
		run: func(ctx context.Context, b git.Backend) error {
			return b.RebaseOnto(ctx, branch)
		},
	}
}

func push(branch git.BranchName, remote git.RemoteName, expected git.ObjectName) step {
	return step{
		desc: fmt.Sprintf("push %s to %s expecting %s", branch, remote, expected.Short()),
		run: func(ctx context.Context, b git.Backend) error {
			return b.Push(ctx, branch, remote, expected)
		},
	}
}

// removeTracking plans the deletion of every bookkeeping ref of branch
// present in snap.
func removeTracking(snap *git.Snapshot, branch git.BranchName) plan {
	var p plan
	if sym, ok := snap.Ref(branch.BaseRefName()); ok {
		if sym.IsSymbolic() {
			p = append(p, deleteSymref(sym.Name))
		} else {
			p = append(p, deleteRef(sym.Name, sym.Object))
		}
	}
	for _, name := range []git.RefName{branch.StartRefName(), branch.RemoteRefName()} {
		if ref, ok := snap.Ref(name); ok {
			if ref.IsSymbolic() {
				p = append(p, deleteSymref(name))
			} else {
				p = append(p, deleteRef(name, ref.Object))
			}
		}
	}
	return p
}
