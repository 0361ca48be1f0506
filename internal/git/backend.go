package git

import (
	"context"
	"errors"
	"fmt"

	"git.home.luguber.info/inful/nscale/internal/config"
)

// Operation names used for logging, metrics, and error context.
const (
	OpClone        = "clone"
	OpSetRemote    = "set-remote"
	OpFetch        = "fetch"
	OpResolve      = "resolve"
	OpRemoteHEAD   = "remote-head"
	OpLocalBranch  = "local-branch"
	RemoteName     = "origin"
	FetchRefSpec   = "+refs/heads/*:refs/remotes/origin/*"
	remoteRefsRoot = "refs/remotes/origin/"
)

// ErrRefNotFound is returned when a requested reference does not exist in the clone.
var ErrRefNotFound = errors.New("reference not found")

// Backend is the set of VCS operations the synchronizer needs. Every method is
// bounded by ctx; a deadline surfaces as a retryable network ClassifiedError.
type Backend interface {
	// Clone creates a fresh clone of url at path with every remote head fetched.
	// Branch selection is left to ResolveRemoteRef, so a missing branch is not a
	// clone failure.
	Clone(ctx context.Context, url, path string) error
	// SetRemoteURL points the origin remote of the clone at url, creating it when missing.
	SetRemoteURL(ctx context.Context, path, url string) error
	// Fetch updates refs/remotes/origin/* and reports whether any of them changed.
	Fetch(ctx context.Context, path string) (bool, error)
	// ResolveRemoteRef returns the commit id of refs/remotes/origin/<branch>.
	ResolveRemoteRef(ctx context.Context, path, branch string) (string, error)
	// RemoteHEAD returns the branch refs/remotes/origin/HEAD points at.
	RemoteHEAD(ctx context.Context, path string) (string, error)
	// LocalBranch returns the branch currently checked out in the clone.
	LocalBranch(ctx context.Context, path string) (string, error)
}

// New builds the backend selected in the configuration. Concurrency limiting
// is left to the caller (see Limited).
func New(cfg config.GitConfig) (Backend, error) {
	switch cfg.Backend {
	case config.GitBackendCLI, "":
		return NewCLIBackend(cfg.Binary), nil
	case config.GitBackendNative:
		return NewNativeBackend(), nil
	default:
		return nil, fmt.Errorf("unknown git backend %q", cfg.Backend)
	}
}
