package git

import (
	"context"
	stderrors "errors"
	"strings"

	"git.home.luguber.info/inful/nscale/internal/foundation/errors"
)

// GitError simplifies creating a git-scoped ClassifiedError.
func GitError(message string) *errors.ErrorBuilder {
	return errors.NewError(errors.CategoryGit, message)
}

// ClassifyGitError translates go-git or command-line git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}

	// Already classified
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())

	builder := GitError("git " + op + " failed").
		WithCause(err).
		WithContext("op", op)
	if url != "" {
		builder.WithContext("url", url)
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		builder.WithCategory(errors.CategoryNetwork).WithContext("timeout", true).Retryable()
	case stderrors.Is(err, context.Canceled):
		builder.WithCategory(errors.CategoryRuntime)
	case strings.Contains(l, "authentication failed") || strings.Contains(l, "authentication required") ||
		strings.Contains(l, "not authorized") || strings.Contains(l, "could not read username") ||
		strings.Contains(l, "invalid credentials") || strings.Contains(l, "permission denied (publickey"):
		builder.WithCategory(errors.CategoryAuth)
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		builder.WithCategory(errors.CategoryNetwork).RateLimit()
	case strings.Contains(l, "repository not found") || strings.Contains(l, "does not appear to be a git repository") ||
		strings.Contains(l, "does not exist") || strings.Contains(l, "couldn't find remote ref") ||
		(strings.Contains(l, "remote branch") && strings.Contains(l, "not found")):
		builder.WithCategory(errors.CategoryNotFound)
	case strings.Contains(l, "remote hung up") || strings.Contains(l, "connection reset") ||
		strings.Contains(l, "connection refused") || strings.Contains(l, "timeout") ||
		strings.Contains(l, "timed out") || strings.Contains(l, "no route to host") ||
		strings.Contains(l, "could not resolve host") || strings.Contains(l, "early eof") ||
		strings.Contains(l, "unable to access"):
		builder.WithCategory(errors.CategoryNetwork).Retryable()
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported") ||
		strings.Contains(l, "executable file not found"):
		builder.WithCategory(errors.CategoryConfig)
	}

	return builder.Build()
}
