package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the configuration file name without extension.
	FileName = "stacker"
	// EnvPrefix prefixes every environment override, e.g. STACKER_REMOTE.
	EnvPrefix = "STACKER"

	fileType = "yaml"
)

// Keys understood by the loader.
const (
	KeyGitPath       = "git_path"
	KeyRemote        = "remote"
	KeyTimeout       = "timeout"
	KeyDebug         = "debug"
	KeyInteractive   = "interactive"
	KeyLogFile       = "log.file"
	KeyLogMaxSize    = "log.max_size"
	KeyLogMaxBackups = "log.max_backups"
	KeyLogMaxAge     = "log.max_age"
)

const (
	defaultRemote     = "origin"
	defaultGitPath    = "git"
	defaultTimeout    = 5 * time.Minute
	defaultMaxSize    = 1
	defaultMaxBackups = 2
	defaultMaxAge     = 30
)

// Config is the effective stacker configuration.
type Config struct {
	GitPath     string        `mapstructure:"git_path"`
	Remote      string        `mapstructure:"remote"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Debug       bool          `mapstructure:"debug"`
	Interactive bool          `mapstructure:"interactive"`
	Log         LogConfig     `mapstructure:"log"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// LogConfig controls the rotating log file. Sizes are in megabytes, ages in days.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
}

// LoadOptions says where to look for a configuration file.
type LoadOptions struct {
	// RepoRoot enables <RepoRoot>/.git/stacker.yaml. May be empty.
	RepoRoot string
	// File is an explicit configuration file; it must exist when set.
	File string
}

// Defaults returns the built-in value of every key.
func Defaults() map[string]any {
	return map[string]any{
		KeyGitPath:       defaultGitPath,
		KeyRemote:        defaultRemote,
		KeyTimeout:       defaultTimeout,
		KeyDebug:         false,
		KeyInteractive:   true,
		KeyLogFile:       "",
		KeyLogMaxSize:    defaultMaxSize,
		KeyLogMaxBackups: defaultMaxBackups,
		KeyLogMaxAge:     defaultMaxAge,
	}
}

// SearchPaths lists the directories searched for stacker.yaml, most specific first.
func SearchPaths(repoRoot string) []string {
	var paths []string
	if repoRoot != "" {
		paths = append(paths, filepath.Join(repoRoot, ".git"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, FileName))
	}
	return paths
}

// Load resolves the configuration from defaults, file and environment.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType(fileType)
	for _, path := range SearchPaths(opts.RepoRoot) {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	}

	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.GitPath == "" {
		cfg.GitPath = defaultGitPath
	}
	if cfg.Remote == "" {
		cfg.Remote = defaultRemote
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid configuration: %s must be positive, got %s", KeyTimeout, cfg.Timeout)
	}
	return cfg, nil
}

type renderedConfig struct {
	GitPath     string    `yaml:"git_path"`
	Remote      string    `yaml:"remote"`
	Timeout     string    `yaml:"timeout"`
	Debug       bool      `yaml:"debug"`
	Interactive bool      `yaml:"interactive"`
	Log         LogConfig `yaml:"log"`
}

// Render returns the configuration as the YAML a stacker.yaml would contain.
func (c *Config) Render() (string, error) {
	out, err := yaml.Marshal(renderedConfig{
		GitPath:     c.GitPath,
		Remote:      c.Remote,
		Timeout:     c.Timeout.String(),
		Debug:       c.Debug,
		Interactive: c.Interactive,
		Log:         c.Log,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render configuration: %w", err)
	}
	return string(out), nil
}
