// Package errors provides foundational, type-safe error primitives used across nscale.
//
// Key features:
//   - ErrorCategory: broad classification (config, git, descriptor, sync, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether a caller may retry (never, backoff, rate_limit, ...)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryGit, "clone failed").
//		WithCause(originalErr).
//		WithContext("url", repoURL).
//		Retryable().
//		Build()
package errors
