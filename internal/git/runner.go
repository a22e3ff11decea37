package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	stackererrors "stacker.dev/stacker/internal/errors"
)

// DefaultCommandTimeout is the default timeout for git commands
const DefaultCommandTimeout = 5 * time.Minute

// Logger receives a debug line for every git invocation.
type Logger interface {
	Debug(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

// CommandRunner handles execution of git commands
type CommandRunner struct {
	gitPath    string
	workingDir string
	env        []string
	timeout    time.Duration
	log        Logger
}

// RunnerOptions configures a CommandRunner. Nothing is taken from the process
// working directory; WorkingDir must be set by the caller.
type RunnerOptions struct {
	GitPath    string
	WorkingDir string
	Env        []string
	Timeout    time.Duration
	Logger     Logger
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(opts RunnerOptions) *CommandRunner {
	r := &CommandRunner{
		gitPath:    opts.GitPath,
		workingDir: opts.WorkingDir,
		env:        append([]string(nil), opts.Env...),
		timeout:    opts.Timeout,
		log:        opts.Logger,
	}
	if r.gitPath == "" {
		r.gitPath = "git"
	}
	if r.timeout <= 0 {
		r.timeout = DefaultCommandTimeout
	}
	if r.log == nil {
		r.log = nopLogger{}
	}
	return r
}

// WorkingDir returns the directory git commands run in.
func (r *CommandRunner) WorkingDir() string {
	return r.workingDir
}

// Run executes a git command with the given context and returns the trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, true, args...)
}

// RunRaw executes a git command and returns its output untouched
func (r *CommandRunner) RunRaw(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, false, args...)
}

func (r *CommandRunner) runInternal(ctx context.Context, trim bool, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.workingDir
	cmd.Env = append(os.Environ(), r.env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	exitCode := exitCodeOf(err)
	r.log.Debug("git %s (exit %d, %s)", strings.Join(args, " "), exitCode, time.Since(start).Round(time.Millisecond))

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = ctx.Err()
		}
		return "", stackererrors.NewGitCommandError(r.gitPath, args, stdout.String(), stderr.String(), exitCode, err)
	}
	if trim {
		return strings.TrimSpace(stdout.String()), nil
	}
	return stdout.String(), nil
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// ExitCode returns the exit status carried by a git command error, or -1.
func ExitCode(err error) int {
	var gitErr *stackererrors.GitCommandError
	if errors.As(err, &gitErr) {
		return gitErr.ExitCode
	}
	return -1
}

// stderrContains reports whether err is a git failure whose stderr mentions any of needles.
func stderrContains(err error, needles ...string) bool {
	var gitErr *stackererrors.GitCommandError
	if !errors.As(err, &gitErr) {
		return false
	}
	text := gitErr.Stderr + gitErr.Stdout
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
