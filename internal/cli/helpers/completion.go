package helpers

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"stacker.dev/stacker/internal/git"
)

// CompleteBranches is a helper for cobra.ValidArgsFunction that returns all
// local branch names of the repository selected by the global flags.
func CompleteBranches(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	dir := Options(cmd).Dir
	if dir == "" {
		dir = "."
	}
	repo, err := git.OpenRepository(dir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	iter, err := repo.Branches()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer iter.Close()

	var names []string
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	return names, cobra.ShellCompDirectiveNoFileComp
}
