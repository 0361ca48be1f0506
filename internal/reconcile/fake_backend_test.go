package reconcile

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/nscale/internal/git"
	"git.home.luguber.info/inful/nscale/internal/metrics"
)

// fakeBackend wraps a real backend and injects delays and failures per workspace path.
type fakeBackend struct {
	git.Backend

	mu          sync.Mutex
	cloneDelay  map[string]time.Duration
	cloneErr    map[string]error
	cloneErrN   map[string]int // fail only the first n clones of a path
	fetchErr    map[string]error
	fetchBlocks bool
	calls       map[string]int
}

func newFakeBackend(inner git.Backend) *fakeBackend {
	return &fakeBackend{
		Backend:    inner,
		cloneDelay: map[string]time.Duration{},
		cloneErr:   map[string]error{},
		cloneErrN:  map[string]int{},
		fetchErr:   map[string]error{},
		calls:      map[string]int{},
	}
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) Clone(ctx context.Context, url, path string) error {
	f.mu.Lock()
	f.calls[git.OpClone]++
	delay := f.cloneDelay[path]
	err := f.cloneErr[path]
	if n := f.cloneErrN[path]; n > 0 {
		f.cloneErrN[path] = n - 1
	} else if _, limited := f.cloneErrN[path]; limited {
		err = nil
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return git.ClassifyGitError(ctx.Err(), git.OpClone, url)
		}
	}
	if err != nil {
		return err
	}
	return f.Backend.Clone(ctx, url, path)
}

func (f *fakeBackend) Fetch(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	f.calls[git.OpFetch]++
	err := f.fetchErr[path]
	blocks := f.fetchBlocks
	f.mu.Unlock()

	if blocks {
		<-ctx.Done()
		return false, git.ClassifyGitError(ctx.Err(), git.OpFetch, "")
	}
	if err != nil {
		return false, err
	}
	return f.Backend.Fetch(ctx, path)
}

// countingRecorder tallies metric events for assertions.
type countingRecorder struct {
	metrics.NoopRecorder
	mu          sync.Mutex
	transitions map[string]int
	results     map[metrics.ResultLabel]int
	writes      map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		transitions: map[string]int{},
		results:     map[metrics.ResultLabel]int{},
		writes:      map[string]int{},
	}
}

func (r *countingRecorder) IncStateTransition(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[from+">"+to]++
}

func (r *countingRecorder) IncPipelineResult(result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result]++
}

func (r *countingRecorder) IncDescriptorWrite(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes[result]++
}
