package engine

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/errors"
	"stacker.dev/stacker/internal/git"
)

// Fix runs three phases, always in this order:
//
//  1. bind: with opts set, make opts.Base the base of opts.Branch
//  2. prune: drop the bookkeeping refs of branches that no longer exist
//  3. heal: recreate missing start refs from the fork point with the base
//
// Each phase works from a fresh snapshot. Bind requires the branch to exist,
// so prune can never undo it. Running Fix again without repository changes
// performs no writes.
func (e *engineImpl) Fix(ctx context.Context, opts FixOptions) (FixReport, error) {
	var report FixReport

	if opts.Branch != "" || opts.Base != "" {
		bound, err := e.bind(ctx, opts)
		if err != nil {
			return report, err
		}
		if bound != "" {
			report.Bound = append(report.Bound, bound)
		}
	}

	pruned, err := e.prune(ctx)
	if err != nil {
		return report, err
	}
	report.Pruned = pruned

	healed, warnings, err := e.heal(ctx)
	if err != nil {
		return report, err
	}
	report.Healed = healed
	report.Warnings = warnings

	for _, w := range warnings {
		e.splog.Warn("%s", w)
	}
	return report, nil
}

func (e *engineImpl) bind(ctx context.Context, opts FixOptions) (git.BranchName, error) {
	if opts.Base == "" {
		return "", errors.ErrBaseNotSpecified
	}
	if opts.Branch == "" {
		return "", errors.NewInvalidBranchNameError("", nil)
	}
	branch, err := git.CheckBranchName(ctx, e.backend, opts.Branch)
	if err != nil {
		return "", err
	}
	base, err := git.CheckBranchName(ctx, e.backend, opts.Base)
	if err != nil {
		return "", err
	}
	if branch == base {
		return "", fmt.Errorf("%w: %s cannot be its own base", errors.ErrInvalidBranchName, branch)
	}

	snap, err := e.snapshot(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := snap.Branch(branch); !ok {
		return "", errors.NewRefNotFoundError(string(branch.RefName()))
	}
	if _, ok := snap.Branch(base); !ok {
		return "", errors.NewRefNotFoundError(string(base.RefName()))
	}

	var p plan
	if sym, ok := snap.Ref(branch.BaseRefName()); ok {
		if sym.SymrefTarget != base.RefName() {
			current := string(sym.SymrefTarget)
			if current == "" {
				current = sym.Object.Short()
			} else if b, ok := git.BranchFromRefName(sym.SymrefTarget); ok {
				current = string(b)
			}
			return "", errors.NewBaseBranchAlreadyDefinedError(string(branch), current, string(base))
		}
	} else {
		p = append(p, createSymref(branch.BaseRefName(), base.RefName(), bindReason))
	}

	if _, ok := snap.Ref(branch.StartRefName()); !ok {
		forkPoint, err := e.backend.ForkPoint(ctx, base.RefName(), branch.RefName())
		if err != nil {
			return "", fmt.Errorf("failed to find fork point of %s on %s: %w", branch, base, err)
		}
		p = append(p, createRef(branch.StartRefName(), forkPoint))
	}

	if len(p) == 0 {
		return "", nil
	}
	if err := e.apply(ctx, snap, p); err != nil {
		return "", err
	}
	return branch, nil
}

func (e *engineImpl) prune(ctx context.Context) ([]git.BranchName, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var (
		p      plan
		pruned []git.BranchName
	)
	for _, branch := range snap.TrackedBranches() {
		if _, ok := snap.Branch(branch); ok {
			continue
		}
		p = append(p, removeTracking(snap, branch)...)
		pruned = append(pruned, branch)
	}
	if len(p) == 0 {
		return nil, nil
	}
	if err := e.apply(ctx, snap, p); err != nil {
		return nil, err
	}
	return pruned, nil
}

func (e *engineImpl) heal(ctx context.Context) ([]git.BranchName, []string, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		p        plan
		healed   []git.BranchName
		warnings []string
	)
	for _, branch := range snap.TrackedBranches() {
		if _, ok := snap.Branch(branch); !ok {
			continue
		}
		_, hasStart := snap.Ref(branch.StartRefName())
		base, hasBase := snap.BaseBranch(branch)

		if !hasBase {
			if sym, ok := snap.Ref(branch.BaseRefName()); ok {
				warnings = append(warnings, fmt.Sprintf("%s is not a symbolic ref", sym.Name))
			} else if hasStart {
				warnings = append(warnings, fmt.Sprintf(
					"%s has a start ref but no base branch; run stacker fix %s <base>", branch, branch))
			}
			continue
		}
		if !base.Exists {
			warnings = append(warnings, fmt.Sprintf(
				"base branch %s of %s no longer exists", base.Branch, branch))
			continue
		}
		if hasStart {
			continue
		}

		forkPoint, err := e.backend.ForkPoint(ctx, base.Target, branch.RefName())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find fork point of %s: %w", branch, err)
		}
		p = append(p, createRef(branch.StartRefName(), forkPoint))
		healed = append(healed, branch)
	}

	if len(p) > 0 {
		if err := e.apply(ctx, snap, p); err != nil {
			return nil, nil, err
		}
	}
	return healed, warnings, nil
}
