package runtime

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"stacker.dev/stacker/internal/config"
	"stacker.dev/stacker/internal/engine"
	"stacker.dev/stacker/internal/git"
	"stacker.dev/stacker/internal/output"
)

// Context provides access to engine and output for commands
type Context struct {
	context.Context
	Engine   engine.Engine
	Splog    *output.Splog
	Config   *config.Config
	RepoRoot string
}

// Options are the global command line settings a Context is built from.
type Options struct {
	// Dir is where to look for the repository (-C). Defaults to ".".
	Dir string
	// ConfigFile is an explicit configuration file (--config).
	ConfigFile string
	// Debug forces debug output on regardless of configuration.
	Debug bool
	// Out receives console output. Defaults to stdout.
	Out io.Writer
}

// NewContext wraps an already built engine. Mostly useful in tests.
func NewContext(ctx context.Context, eng engine.Engine, splog *output.Splog) *Context {
	if splog == nil {
		splog = output.NewDiscardSplog()
	}
	return &Context{
		Context: ctx,
		Engine:  eng,
		Splog:   splog,
		Config:  &config.Config{Interactive: false},
	}
}

// GetContext locates the repository, loads configuration and wires a git
// CLI backend into a new engine.
func GetContext(ctx context.Context, opts Options) (*Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", opts.Dir, err)
	}

	repoRoot, err := git.RepoRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	cfg, err := config.Load(config.LoadOptions{RepoRoot: repoRoot, File: opts.ConfigFile})
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Debug = true
	}

	splog, err := output.NewSplogWithOptions(output.SplogOptions{
		Writer: opts.Out,
		Debug:  cfg.Debug,
		LogFile: output.LogFileOptions{
			Path:       cfg.Log.File,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
		},
	})
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		splog.Debug("using configuration %s", cfg.File)
	}

	backend := git.NewCLIBackend(git.CLIOptions{
		GitPath: cfg.GitPath,
		WorkDir: repoRoot,
		Timeout: cfg.Timeout,
		Logger:  splog,
	})

	return &Context{
		Context: ctx,
		Engine: engine.New(engine.Options{
			Backend:       backend,
			Splog:         splog,
			DefaultRemote: git.RemoteName(cfg.Remote),
		}),
		Splog:    splog,
		Config:   cfg,
		RepoRoot: repoRoot,
	}, nil
}

// Close releases the log file, if any.
func (c *Context) Close() error {
	return c.Splog.Close()
}
