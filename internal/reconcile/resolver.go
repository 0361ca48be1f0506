package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/nscale/internal/git"
	"git.home.luguber.info/inful/nscale/internal/logfields"
	"git.home.luguber.info/inful/nscale/internal/observability"
)

// commitID matches full SHA-1 and SHA-256 object names.
var commitID = regexp.MustCompile(`^(?:[0-9a-f]{40}|[0-9a-f]{64})$`)

// Resolution is the branch a container follows and the commit it currently points at.
type Resolution struct {
	Branch string
	Commit string
}

// Resolver maps a container's branch onto a commit of a ready clone.
type Resolver struct {
	backend       git.Backend
	defaultBranch string
	invoker
}

// NewResolver creates a resolver. defaultBranch is the last fallback when
// neither the container nor the clone names a branch.
func NewResolver(backend git.Backend, opts ...Option) *Resolver {
	s := newSettings(append([]Option{WithBackend(backend)}, opts...))
	return newResolver(s)
}

func newResolver(s settings) *Resolver {
	return &Resolver{
		backend:       s.backend,
		defaultBranch: s.defaultBranch,
		invoker:       invoker{timeout: s.timeout, recorder: s.recorder},
	}
}

// Resolve returns the commit of refs/remotes/origin/<branch>. An explicit branch
// must resolve. Without one, the remote's default branch, the checked-out branch
// and the configured default are tried in that order. A branch missing from the
// clone fails with ErrUnknownBranch; any other backend failure with ErrResolveFailed.
func (r *Resolver) Resolve(ctx context.Context, path, branch, containerID string) (Resolution, error) {
	candidates := []string{branch}
	if branch == "" {
		candidates = r.defaultCandidates(ctx, path)
	}

	var lastErr error
	for _, b := range candidates {
		var commit string
		err := r.call(ctx, git.OpResolve, func(ctx context.Context) error {
			var rerr error
			commit, rerr = r.backend.ResolveRemoteRef(ctx, path, b)
			return rerr
		})
		if err == nil && !commitID.MatchString(commit) {
			err = fmt.Errorf("%w: %q is not a commit id", git.ErrRefNotFound, commit)
		}
		if err == nil {
			return Resolution{Branch: b, Commit: commit}, nil
		}
		lastErr = err
		if !errors.Is(err, git.ErrRefNotFound) {
			break
		}
		observability.DebugContext(ctx, "Branch candidate did not resolve", logfields.Branch(b), logfields.Error(err))
	}
	sentinel := ErrUnknownBranch
	if !errors.Is(lastErr, git.ErrRefNotFound) {
		sentinel = ErrResolveFailed
	}
	return Resolution{}, failure(sentinel, fmt.Errorf("branch %q: %w", candidates[0], lastErr), containerID)
}

func (r *Resolver) defaultCandidates(ctx context.Context, path string) []string {
	var out []string
	add := func(b string) {
		if b == "" || b == "HEAD" {
			return
		}
		for _, existing := range out {
			if existing == b {
				return
			}
		}
		out = append(out, b)
	}

	var remoteHead, local string
	_ = r.call(ctx, git.OpRemoteHEAD, func(ctx context.Context) error {
		var err error
		remoteHead, err = r.backend.RemoteHEAD(ctx, path)
		return err
	})
	add(remoteHead)
	_ = r.call(ctx, git.OpLocalBranch, func(ctx context.Context) error {
		var err error
		local, err = r.backend.LocalBranch(ctx, path)
		return err
	})
	add(local)
	add(r.defaultBranch)
	return out
}
