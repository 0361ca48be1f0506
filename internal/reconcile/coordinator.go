package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/nscale/internal/descriptor"
	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
	"git.home.luguber.info/inful/nscale/internal/git"
	"git.home.luguber.info/inful/nscale/internal/logfields"
	"git.home.luguber.info/inful/nscale/internal/observability"
	"git.home.luguber.info/inful/nscale/internal/workspace"
)

// Coordinator synchronizes every container of one descriptor.
type Coordinator struct {
	ws             *workspace.Manager
	descriptorPath string
	settings       settings

	mu      sync.Mutex
	results []SyncResult
	errs    []*ContainerError
}

// NewCoordinator creates a coordinator for the descriptor at descriptorPath
// whose clones live below workspaceRoot/workspace.
func NewCoordinator(workspaceRoot, descriptorPath string, opts ...Option) *Coordinator {
	s := newSettings(opts)
	if s.maxConcurrentGit > 0 {
		s.backend = git.NewLimited(s.backend, int64(s.maxConcurrentGit))
	}
	return &Coordinator{
		ws:             workspace.NewManager(workspaceRoot),
		descriptorPath: descriptorPath,
		settings:       s,
	}
}

// Synchronize brings every container's clone up to date and records its commit.
// It returns how many containers have their commit recorded, and a *SyncError
// listing every failed container when any failed.
func Synchronize(ctx context.Context, workspaceRoot, descriptorPath string, opts ...Option) (int, error) {
	return NewCoordinator(workspaceRoot, descriptorPath, opts...).Run(ctx)
}

// Results returns the per-container results of the last Run in completion order.
func (c *Coordinator) Results() []SyncResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SyncResult, len(c.results))
	copy(out, c.results)
	return out
}

// Run executes one synchronization pass. A descriptor that cannot be read
// aborts the run before any container is touched; a failing container never
// stops the others.
func (c *Coordinator) Run(ctx context.Context) (int, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)

	c.mu.Lock()
	c.results = nil
	c.errs = nil
	c.mu.Unlock()

	d, err := descriptor.Load(c.descriptorPath)
	if err != nil {
		return 0, err
	}
	if err := c.ws.Ensure(); err != nil {
		return 0, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to prepare workspace").
			WithContext("path", c.ws.Dir()).
			Build()
	}

	pipeline := newPipeline(c.settings, c.ws, descriptor.NewWriter(c.descriptorPath))

	var g errgroup.Group
	if c.settings.maxPipelines > 0 {
		g.SetLimit(c.settings.maxPipelines)
	}

	seen := make(map[string]bool, len(d.ContainerDefinitions))
	attempted := 0
	for _, def := range d.ContainerDefinitions {
		if !def.HasRepository() {
			observability.DebugContext(ctx, "Skipping container without repository", logfields.ContainerID(def.ID))
			continue
		}
		attempted++
		if seen[def.ID] {
			c.record(SyncResult{
				ContainerID:   def.ID,
				RepositoryURL: def.Specific.RepositoryURL,
				Err:           failure(ErrDuplicateContainer, nil, def.ID),
			})
			continue
		}
		seen[def.ID] = true

		def := def
		g.Go(func() error {
			c.record(pipeline.Reconcile(ctx, def))
			return nil
		})
	}
	c.settings.recorder.SetPipelineConcurrency(len(seen))
	observability.InfoContext(ctx, "Synchronizing containers",
		slog.Int("containers", attempted),
		logfields.Path(c.descriptorPath))
	_ = g.Wait()

	return c.summarize(ctx, attempted, time.Since(start))
}

func (c *Coordinator) record(res SyncResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
	if res.Err != nil {
		c.errs = append(c.errs, &ContainerError{ContainerID: res.ContainerID, Err: res.Err})
	}
}

func (c *Coordinator) summarize(ctx context.Context, attempted int, elapsed time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, r := range c.results {
		if r.Recorded() {
			count++
		}
	}
	observability.InfoContext(ctx, fmt.Sprintf("Synchronized %d of %d containers", count, attempted),
		slog.Int("failed", len(c.errs)),
		logfields.DurationMS(float64(elapsed.Milliseconds())))

	if len(c.errs) == 0 {
		return count, nil
	}
	failures := make([]*ContainerError, len(c.errs))
	copy(failures, c.errs)
	return count, &SyncError{Failures: failures, Attempted: attempted}
}
