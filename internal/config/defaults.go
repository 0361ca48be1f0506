package config

import "runtime"

// Default values applied when the configuration omits a field.
const (
	DefaultGitBinary     = "git"
	DefaultGitTimeout    = "5m"
	DefaultDefaultBranch = "master"
	DefaultRetryInitial  = "1s"
	DefaultRetryMax      = "30s"
)

// DefaultMaxConcurrentGit caps concurrent git invocations; bounded so large
// descriptors do not spawn one subprocess per container at once.
func DefaultMaxConcurrentGit() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	if n > 8 {
		return 8
	}
	return n
}

// ApplyDefaults fills unset fields and normalizes enum-like values.
func ApplyDefaults(cfg *Config) {
	if b := NormalizeGitBackend(string(cfg.Git.Backend)); b != "" {
		cfg.Git.Backend = b
	} else if cfg.Git.Backend == "" {
		cfg.Git.Backend = GitBackendCLI
	}
	if cfg.Git.Binary == "" {
		cfg.Git.Binary = DefaultGitBinary
	}
	if cfg.Git.Timeout == "" {
		cfg.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Git.MaxConcurrent <= 0 {
		cfg.Git.MaxConcurrent = DefaultMaxConcurrentGit()
	}
	if cfg.Git.DefaultBranch == "" {
		cfg.Git.DefaultBranch = DefaultDefaultBranch
	}
	if p := NormalizeFetchFailurePolicy(string(cfg.Git.OnFetchFailure)); p != "" {
		cfg.Git.OnFetchFailure = p
	} else if cfg.Git.OnFetchFailure == "" {
		cfg.Git.OnFetchFailure = FetchFailureReclone
	}

	if cfg.Git.Retry.MaxRetries < 0 {
		cfg.Git.Retry.MaxRetries = 0
	}
	if m := NormalizeRetryBackoff(string(cfg.Git.Retry.Backoff)); m != "" {
		cfg.Git.Retry.Backoff = m
	} else if cfg.Git.Retry.Backoff == "" {
		cfg.Git.Retry.Backoff = RetryBackoffLinear
	}
	if cfg.Git.Retry.InitialDelay == "" {
		cfg.Git.Retry.InitialDelay = DefaultRetryInitial
	}
	if cfg.Git.Retry.MaxDelay == "" {
		cfg.Git.Retry.MaxDelay = DefaultRetryMax
	}

	if cfg.Sync.MaxPipelines < 0 {
		cfg.Sync.MaxPipelines = 0
	}
	if cfg.Sync.Descriptor == "" {
		cfg.Sync.Descriptor = DefaultDescriptorName
	}
}
