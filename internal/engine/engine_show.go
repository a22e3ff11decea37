package engine

import "context"

func (e *engineImpl) Show(ctx context.Context) ([]BranchStatus, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	head, _ := snap.Head()

	var out []BranchStatus
	for _, branch := range snap.TrackedBranches() {
		st := BranchStatus{
			Branch:  branch,
			Current: branch == head,
		}
		if ref, ok := snap.Branch(branch); ok {
			st.Head = ref.Object
		} else {
			st.Orphaned = true
		}

		if base, ok := snap.BaseBranch(branch); ok {
			st.HasBase = true
			st.Base = base.Branch
			st.BaseExists = base.Exists
			st.BaseObject = base.Ref.Object
		}
		if ref, ok := snap.Ref(branch.StartRefName()); ok {
			st.Start = ref.Object
		}
		if ref, ok := snap.Ref(branch.RemoteRefName()); ok {
			st.Remote = ref.Object
		}

		st.NeedsRebase = st.BaseExists && st.BaseObject != st.Start
		st.NeedsPush = !st.Orphaned && st.Remote != st.Head
		out = append(out, st)
	}
	return out, nil
}
