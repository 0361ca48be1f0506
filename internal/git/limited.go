package git

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limited caps the number of concurrent invocations of the wrapped backend.
// Waiting for a slot counts against the caller's context.
type Limited struct {
	next Backend
	sem  *semaphore.Weighted
}

// NewLimited wraps next so at most n operations run at once.
func NewLimited(next Backend, n int64) *Limited {
	if n < 1 {
		n = 1
	}
	return &Limited{next: next, sem: semaphore.NewWeighted(n)}
}

func (l *Limited) acquire(ctx context.Context, op string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return ClassifyGitError(err, op, "")
	}
	return nil
}

// Clone waits for a slot and delegates.
func (l *Limited) Clone(ctx context.Context, url, path string) error {
	if err := l.acquire(ctx, OpClone); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return l.next.Clone(ctx, url, path)
}

// SetRemoteURL waits for a slot and delegates.
func (l *Limited) SetRemoteURL(ctx context.Context, path, url string) error {
	if err := l.acquire(ctx, OpSetRemote); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return l.next.SetRemoteURL(ctx, path, url)
}

// Fetch waits for a slot and delegates.
func (l *Limited) Fetch(ctx context.Context, path string) (bool, error) {
	if err := l.acquire(ctx, OpFetch); err != nil {
		return false, err
	}
	defer l.sem.Release(1)
	return l.next.Fetch(ctx, path)
}

// ResolveRemoteRef waits for a slot and delegates.
func (l *Limited) ResolveRemoteRef(ctx context.Context, path, branch string) (string, error) {
	if err := l.acquire(ctx, OpResolve); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.next.ResolveRemoteRef(ctx, path, branch)
}

// RemoteHEAD waits for a slot and delegates.
func (l *Limited) RemoteHEAD(ctx context.Context, path string) (string, error) {
	if err := l.acquire(ctx, OpRemoteHEAD); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.next.RemoteHEAD(ctx, path)
}

// LocalBranch waits for a slot and delegates.
func (l *Limited) LocalBranch(ctx context.Context, path string) (string, error) {
	if err := l.acquire(ctx, OpLocalBranch); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.next.LocalBranch(ctx, path)
}
