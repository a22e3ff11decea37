package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stacker.dev/stacker/internal/errors"
)

// configNoMatchExitCode is what git config --unset-all returns when nothing matched.
const configNoMatchExitCode = 5

// CLIOptions configures a CLIBackend.
type CLIOptions struct {
	GitPath string
	WorkDir string
	Env     []string
	Timeout time.Duration
	Logger  Logger
}

// CLIBackend implements Backend by running the git binary.
type CLIBackend struct {
	runner *CommandRunner
}

var _ Backend = (*CLIBackend)(nil)

// NewCLIBackend creates a backend operating on the repository at opts.WorkDir.
func NewCLIBackend(opts CLIOptions) *CLIBackend {
	return &CLIBackend{
		runner: NewCommandRunner(RunnerOptions{
			GitPath:    opts.GitPath,
			WorkingDir: opts.WorkDir,
			Env:        opts.Env,
			Timeout:    opts.Timeout,
			Logger:     opts.Logger,
		}),
	}
}

// QueryRefs lists every ref followed by any dangling bookkeeping symrefs.
func (b *CLIBackend) QueryRefs(ctx context.Context) (string, error) {
	out, err := b.runner.RunRaw(ctx, "for-each-ref", "--format="+RefFormat)
	if err != nil {
		return "", err
	}

	repo, err := OpenRepository(b.runner.WorkingDir())
	if err != nil {
		return "", err
	}
	dangling, err := repo.DanglingSymrefs(StackerRefPrefix)
	if err != nil {
		return "", err
	}
	if len(dangling) == 0 {
		return out, nil
	}

	var sb strings.Builder
	sb.WriteString(out)
	if out != "" && !strings.HasSuffix(out, recordSeparator) {
		sb.WriteString(recordSeparator)
	}
	for _, ref := range dangling {
		sb.WriteString(FormatRefRow(ref))
		sb.WriteString(recordSeparator)
	}
	return sb.String(), nil
}

func (b *CLIBackend) ValidateBranchName(ctx context.Context, name string) error {
	_, err := b.runner.Run(ctx, "check-ref-format", "--branch", name)
	return err
}

func (b *CLIBackend) CreateBranch(ctx context.Context, name BranchName, base ObjectName) error {
	_, err := b.runner.Run(ctx, "branch", "--create-reflog", string(name), string(base))
	if isRefConflict(err) {
		return errors.NewRefConflictError(string(name.RefName()), "", err)
	}
	if stderrContains(err, "already exists") {
		return errors.NewPreconditionFailedError(string(name.RefName()), err)
	}
	return err
}

func (b *CLIBackend) SwitchBranch(ctx context.Context, name BranchName) error {
	_, err := b.runner.Run(ctx, "switch", "--no-guess", string(name))
	return err
}

func (b *CLIBackend) CreateSymref(ctx context.Context, name, target RefName, reason string) error {
	_, err := b.runner.Run(ctx, "symbolic-ref", "-m", reason, string(name), string(target))
	if isRefConflict(err) {
		return errors.NewRefConflictError(string(name), "", err)
	}
	return err
}

func (b *CLIBackend) DeleteSymref(ctx context.Context, name RefName) error {
	_, err := b.runner.Run(ctx, "symbolic-ref", "--delete", string(name))
	return err
}

func (b *CLIBackend) CreateRef(ctx context.Context, name RefName, object ObjectName) error {
	return b.UpdateRef(ctx, name, object, ZeroObject)
}

func (b *CLIBackend) UpdateRef(ctx context.Context, name RefName, newObject, expected ObjectName) error {
	_, err := b.runner.Run(ctx, "update-ref", "--no-deref", "--create-reflog",
		string(name), string(newObject), expectedArg(expected))
	return refPrecondition(name, err)
}

func (b *CLIBackend) DeleteRef(ctx context.Context, name RefName, expected ObjectName) error {
	_, err := b.runner.Run(ctx, "update-ref", "--no-deref", "-d", string(name), expectedArg(expected))
	return refPrecondition(name, err)
}

func (b *CLIBackend) RebaseOnto(ctx context.Context, branch BranchName) error {
	_, err := b.runner.Run(ctx, "rebase", "--committer-date-is-author-date",
		"--onto", string(branch.BaseRefName()), string(branch.StartRefName()), string(branch))
	if err != nil && b.rebaseInProgress(ctx) {
		return errors.NewRebaseConflictError(string(branch), "resolve the conflicts and run git rebase --continue")
	}
	return err
}

func (b *CLIBackend) Push(ctx context.Context, branch BranchName, remote RemoteName, expected ObjectName) error {
	lease := ""
	if !expected.IsZero() {
		lease = string(expected)
	}
	ref := string(branch.RefName())
	_, err := b.runner.Run(ctx, "push", "--set-upstream",
		fmt.Sprintf("--force-with-lease=%s:%s", ref, lease),
		string(remote), ref+":"+ref)
	if stderrContains(err, "stale info", "[rejected]") {
		return errors.NewPreconditionFailedError(ref, err)
	}
	return err
}

func (b *CLIBackend) FetchAllPrune(ctx context.Context) error {
	_, err := b.runner.Run(ctx, "fetch", "--all", "--prune")
	return err
}

// ForkPoint consults base's reflog first and falls back to the plain merge
// base when the reflog no longer knows where branch was forked.
func (b *CLIBackend) ForkPoint(ctx context.Context, base, branch RefName) (ObjectName, error) {
	out, err := b.runner.Run(ctx, "merge-base", "--fork-point", string(base), string(branch))
	if err == nil && out != "" {
		return ObjectName(out), nil
	}
	if err != nil && ExitCode(err) != 1 {
		return "", err
	}

	repo, openErr := OpenRepository(b.runner.WorkingDir())
	if openErr != nil {
		return "", openErr
	}
	return repo.MergeBase(base, branch)
}

func (b *CLIBackend) ConfigAdd(ctx context.Context, key, value string) error {
	_, err := b.runner.Run(ctx, "config", "--local", "--fixed-value", "--get-all", key, value)
	if err == nil {
		return nil
	}
	if ExitCode(err) != 1 {
		return err
	}
	_, err = b.runner.Run(ctx, "config", "--local", "--add", key, value)
	return err
}

func (b *CLIBackend) ConfigUnsetMatching(ctx context.Context, key, value string) error {
	_, err := b.runner.Run(ctx, "config", "--local", "--fixed-value", "--unset-all", key, value)
	if err != nil && ExitCode(err) == configNoMatchExitCode {
		return nil
	}
	return err
}

func (b *CLIBackend) rebaseInProgress(ctx context.Context) bool {
	gitDir, err := b.runner.Run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return false
	}
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(gitDir, dir)); err == nil {
			return true
		}
	}
	return false
}

func expectedArg(expected ObjectName) string {
	if expected.IsZero() {
		return string(ZeroObject)
	}
	return string(expected)
}

// isRefConflict reports a directory/file clash between ref paths, such as
// creating refs/x/y while refs/x exists.
func isRefConflict(err error) bool {
	return stderrContains(err, "exists; cannot create", "Not a directory", "Is a directory")
}

func refPrecondition(name RefName, err error) error {
	if isRefConflict(err) {
		return errors.NewRefConflictError(string(name), "", err)
	}
	if stderrContains(err,
		"but expected",
		"reference already exists",
		"unable to resolve reference",
	) {
		return errors.NewPreconditionFailedError(string(name), err)
	}
	return err
}
