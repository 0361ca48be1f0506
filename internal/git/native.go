package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// NativeBackend implements Backend with go-git.
type NativeBackend struct{}

// NewNativeBackend creates a go-git backed implementation.
func NewNativeBackend() *NativeBackend { return &NativeBackend{} }

// Clone clones every head of url into path and checks out the remote's default branch.
func (NativeBackend) Clone(ctx context.Context, url, path string) error {
	opts := &git.CloneOptions{URL: url, RemoteName: RemoteName, Tags: git.NoTags}
	if _, err := git.PlainCloneContext(ctx, path, false, opts); err != nil {
		return ClassifyGitError(wrapCtx(ctx, err), OpClone, url)
	}
	return nil
}

// SetRemoteURL rewrites the origin URL in the repository config.
func (NativeBackend) SetRemoteURL(_ context.Context, path, url string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return ClassifyGitError(err, OpSetRemote, url)
	}
	cfg, err := repo.Config()
	if err != nil {
		return ClassifyGitError(err, OpSetRemote, url)
	}
	rc, ok := cfg.Remotes[RemoteName]
	if !ok {
		_, err = repo.CreateRemote(&ggitcfg.RemoteConfig{
			Name:  RemoteName,
			URLs:  []string{url},
			Fetch: []ggitcfg.RefSpec{FetchRefSpec},
		})
		return ClassifyGitError(err, OpSetRemote, url)
	}
	if len(rc.URLs) == 1 && rc.URLs[0] == url {
		return nil
	}
	rc.URLs = []string{url}
	return ClassifyGitError(repo.SetConfig(cfg), OpSetRemote, url)
}

// Fetch updates refs/remotes/origin/*; NoErrAlreadyUpToDate reports no change.
func (NativeBackend) Fetch(ctx context.Context, path string) (bool, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return false, ClassifyGitError(err, OpFetch, "")
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: RemoteName,
		Tags:       git.NoTags,
		RefSpecs:   []ggitcfg.RefSpec{FetchRefSpec},
	})
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, git.NoErrAlreadyUpToDate):
		return false, nil
	default:
		return false, ClassifyGitError(wrapCtx(ctx, err), OpFetch, "")
	}
}

// ResolveRemoteRef resolves refs/remotes/origin/<branch> to its commit hash.
func (NativeBackend) ResolveRemoteRef(_ context.Context, path, branch string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", ClassifyGitError(err, OpResolve, "")
	}
	name := plumbing.NewRemoteReferenceName(RemoteName, branch)
	ref, err := repo.Reference(name, true)
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", fmt.Errorf("%w: %s", ErrRefNotFound, name)
		}
		return "", ClassifyGitError(err, OpResolve, "")
	}
	return ref.Hash().String(), nil
}

// RemoteHEAD returns the branch the symbolic refs/remotes/origin/HEAD points at.
func (NativeBackend) RemoteHEAD(_ context.Context, path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", ClassifyGitError(err, OpRemoteHEAD, "")
	}
	ref, err := repo.Reference(plumbing.NewRemoteHEADReferenceName(RemoteName), false)
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", fmt.Errorf("%w: %sHEAD", ErrRefNotFound, remoteRefsRoot)
		}
		return "", ClassifyGitError(err, OpRemoteHEAD, "")
	}
	target := ref.Target().String()
	if ref.Type() != plumbing.SymbolicReference || !strings.HasPrefix(target, remoteRefsRoot) {
		return "", fmt.Errorf("%w: %sHEAD is not symbolic", ErrRefNotFound, remoteRefsRoot)
	}
	return strings.TrimPrefix(target, remoteRefsRoot), nil
}

// LocalBranch returns the branch HEAD is attached to.
func (NativeBackend) LocalBranch(_ context.Context, path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", ClassifyGitError(err, OpLocalBranch, "")
	}
	ref, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", ClassifyGitError(err, OpLocalBranch, "")
	}
	if ref.Type() != plumbing.SymbolicReference || !ref.Target().IsBranch() {
		return "", fmt.Errorf("%w: HEAD is detached", ErrRefNotFound)
	}
	return ref.Target().Short(), nil
}

// wrapCtx prefers the context error so deadlines classify as timeouts
// even when go-git reports a generic transport failure.
func wrapCtx(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !stderrors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
