package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
)

// Config represents the nscale configuration file.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Git       GitConfig       `yaml:"git"`
	Sync      SyncConfig      `yaml:"sync"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// WorkspaceConfig locates the directory that holds workspace/<container-id> entries.
type WorkspaceConfig struct {
	Root string `yaml:"root,omitempty"` // empty = project directory given on the command line
}

// GitConfig controls how repositories are cloned and fetched.
type GitConfig struct {
	Backend        GitBackend         `yaml:"backend,omitempty"`
	Binary         string             `yaml:"binary,omitempty"`
	Timeout        string             `yaml:"timeout,omitempty"`
	MaxConcurrent  int                `yaml:"max_concurrent,omitempty"`
	DefaultBranch  string             `yaml:"default_branch,omitempty"`
	OnFetchFailure FetchFailurePolicy `yaml:"on_fetch_failure,omitempty"`
	Retry          RetryConfig        `yaml:"retry"`
}

// RetryConfig governs retries of transient clone failures.
type RetryConfig struct {
	MaxRetries   int              `yaml:"max_retries"`
	Backoff      RetryBackoffMode `yaml:"backoff,omitempty"`
	InitialDelay string           `yaml:"initial_delay,omitempty"`
	MaxDelay     string           `yaml:"max_delay,omitempty"`
}

// SyncConfig controls the per-container pipelines.
type SyncConfig struct {
	MaxPipelines int    `yaml:"max_pipelines,omitempty"` // 0 = one goroutine per container
	Descriptor   string `yaml:"descriptor,omitempty"`    // relative to the project directory
}

// MetricsConfig configures the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// DefaultDescriptorName is the descriptor file looked up in a project directory.
const DefaultDescriptorName = "system.json"

// DefaultPath returns $HOME/.nscale/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".nscale", "config.yaml")
	}
	return filepath.Join(home, ".nscale", "config.yaml")
}

// Load reads the configuration file at configPath. A missing file yields the defaults.
// Environment variables referenced as ${VAR} are expanded after .env files are loaded.
func Load(configPath string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load .env file").
			Build()
	}

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse config file").
				WithContext("path", configPath).
				Build()
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GitTimeout returns the parsed per-invocation timeout. Call after Validate.
func (c *Config) GitTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Git.Timeout)
	return d
}

// RetryDelays returns the parsed initial and max retry delays. Call after Validate.
func (c *Config) RetryDelays() (time.Duration, time.Duration) {
	initial, _ := time.ParseDuration(c.Git.Retry.InitialDelay)
	maxDelay, _ := time.ParseDuration(c.Git.Retry.MaxDelay)
	return initial, maxDelay
}

// DescriptorPath resolves the descriptor location for a project directory.
func (c *Config) DescriptorPath(projectDir string) string {
	name := c.Sync.Descriptor
	if name == "" {
		name = DefaultDescriptorName
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(projectDir, name)
}

// WorkspaceRoot resolves the workspace root for a project directory.
func (c *Config) WorkspaceRoot(projectDir string) string {
	if c.Workspace.Root != "" {
		return c.Workspace.Root
	}
	return projectDir
}

const initTemplate = `# nscale configuration
#
# Values may reference environment variables as ${VAR}; .env and .env.local
# in the working directory are loaded first.

workspace:
  # Directory holding workspace/<container-id>. Empty = project directory.
  root: ""

git:
  # cli (git binary) or native (go-git)
  backend: %s
  binary: %s
  # Upper bound for every clone/fetch/resolve invocation.
  timeout: %s
  # Concurrent git invocations across all containers.
  max_concurrent: %d
  # Used when neither the container nor the remote names a branch.
  default_branch: %s
  # reclone or propagate
  on_fetch_failure: %s
  retry:
    # Retries of transient clone failures (0 = single attempt).
    max_retries: %d
    backoff: %s
    initial_delay: %s
    max_delay: %s

sync:
  # 0 = one pipeline per container.
  max_pipelines: %d
  descriptor: %s

metrics:
  # Prometheus textfile collector output, empty = disabled.
  textfile: ""
`

// Init writes a commented default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	d := &Config{}
	ApplyDefaults(d)
	content := fmt.Sprintf(initTemplate,
		d.Git.Backend, d.Git.Binary, d.Git.Timeout, d.Git.MaxConcurrent, d.Git.DefaultBranch,
		d.Git.OnFetchFailure, d.Git.Retry.MaxRetries, d.Git.Retry.Backoff, d.Git.Retry.InitialDelay,
		d.Git.Retry.MaxDelay, d.Sync.MaxPipelines, d.Sync.Descriptor)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return foundationerrors.FileSystemError("failed to create config directory").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return foundationerrors.FileSystemError("failed to write config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	return nil
}
