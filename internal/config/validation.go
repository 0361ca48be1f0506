package config

import (
	"fmt"
	"time"

	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateGit,
		c.validateRetry,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid configuration").
				Fatal().
				Build()
		}
	}
	return nil
}

func (c *Config) validateGit() error {
	switch c.Git.Backend {
	case GitBackendCLI, GitBackendNative:
	default:
		return fmt.Errorf("invalid git.backend: %s (allowed: cli|native)", c.Git.Backend)
	}
	switch c.Git.OnFetchFailure {
	case FetchFailureReclone, FetchFailurePropagate:
	default:
		return fmt.Errorf("invalid git.on_fetch_failure: %s (allowed: reclone|propagate)", c.Git.OnFetchFailure)
	}
	d, err := time.ParseDuration(c.Git.Timeout)
	if err != nil {
		return fmt.Errorf("invalid git.timeout: %s: %w", c.Git.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("git.timeout must be positive: %s", c.Git.Timeout)
	}
	return nil
}

func (c *Config) validateRetry() error {
	switch c.Git.Retry.Backoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return fmt.Errorf("invalid git.retry.backoff: %s (allowed: fixed|linear|exponential)", c.Git.Retry.Backoff)
	}
	initDur, err := time.ParseDuration(c.Git.Retry.InitialDelay)
	if err != nil {
		return fmt.Errorf("invalid git.retry.initial_delay: %s: %w", c.Git.Retry.InitialDelay, err)
	}
	maxDur, err := time.ParseDuration(c.Git.Retry.MaxDelay)
	if err != nil {
		return fmt.Errorf("invalid git.retry.max_delay: %s: %w", c.Git.Retry.MaxDelay, err)
	}
	if maxDur < initDur {
		return fmt.Errorf("git.retry.max_delay (%s) must be >= git.retry.initial_delay (%s)",
			c.Git.Retry.MaxDelay, c.Git.Retry.InitialDelay)
	}
	return nil
}
