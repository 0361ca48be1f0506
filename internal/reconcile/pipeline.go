package reconcile

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/nscale/internal/descriptor"
	"git.home.luguber.info/inful/nscale/internal/git"
	"git.home.luguber.info/inful/nscale/internal/logfields"
	"git.home.luguber.info/inful/nscale/internal/metrics"
	"git.home.luguber.info/inful/nscale/internal/observability"
	"git.home.luguber.info/inful/nscale/internal/workspace"
)

// SyncResult is the outcome of one container's pipeline.
type SyncResult struct {
	ContainerID   string
	RepositoryURL string
	Branch        string
	Commit        string
	Write         descriptor.WriteResult
	Outcome       Outcome
	Duration      time.Duration
	Err           error
}

// Recorded reports whether the container's commit is now stored in the descriptor.
func (r SyncResult) Recorded() bool {
	return r.Err == nil && r.Write.Recorded()
}

// Pipeline synchronizes a single container: entry state machine, commit
// resolution, descriptor update.
type Pipeline struct {
	ws       *workspace.Manager
	executor *Executor
	resolver *Resolver
	writer   *descriptor.Writer
	recorder metrics.Recorder
}

func newPipeline(s settings, ws *workspace.Manager, writer *descriptor.Writer) *Pipeline {
	return &Pipeline{
		ws:       ws,
		executor: newExecutor(s, ws),
		resolver: newResolver(s),
		writer:   writer,
		recorder: s.recorder,
	}
}

// Reconcile runs the pipeline for def. It never panics on per-container
// failures; they are returned in SyncResult.Err.
func (p *Pipeline) Reconcile(ctx context.Context, def descriptor.ContainerDefinition) SyncResult {
	start := time.Now()
	ctx = observability.WithContainerID(ctx, def.ID)
	res := SyncResult{ContainerID: def.ID, RepositoryURL: def.Specific.RepositoryURL}

	res = p.run(ctx, def, res)
	res.Duration = time.Since(start)

	label := metrics.ResultSuccess
	switch {
	case res.Err != nil:
		label = metrics.ResultFailed
		observability.ErrorContext(ctx, "Container synchronization failed", logfields.Error(res.Err))
	case res.Write == descriptor.ContainerRemoved:
		label = metrics.ResultRemoved
		observability.WarnContext(ctx, "Container was removed from the descriptor, commit not recorded",
			logfields.Commit(res.Commit))
	default:
		observability.InfoContext(ctx, fmt.Sprintf("%s is at %s", def.ID, res.Commit),
			logfields.Branch(res.Branch),
			logfields.Commit(res.Commit),
			logfields.WriteResult(res.Write.String()),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	}
	p.recorder.IncPipelineResult(label)
	p.recorder.ObservePipelineDuration(label, res.Duration)
	return res
}

func (p *Pipeline) run(ctx context.Context, def descriptor.ContainerDefinition, res SyncResult) SyncResult {
	if err := workspace.ValidateID(def.ID); err != nil {
		res.Err = failure(ErrInvalidContainerID, err, def.ID)
		return res
	}

	target := Target{
		ContainerID: def.ID,
		URL:         git.AbsoluteURL(def.Specific.RepositoryURL),
		Branch:      def.Specific.Branch,
		Path:        p.ws.PathFor(def.ID),
	}
	outcome, err := p.executor.Run(ctx, target)
	res.Outcome = outcome
	if err != nil {
		res.Err = err
		return res
	}

	resolution, err := p.resolver.Resolve(ctx, target.Path, target.Branch, def.ID)
	if err != nil {
		res.Err = err
		return res
	}
	res.Branch = resolution.Branch
	res.Commit = resolution.Commit

	write, err := p.writer.SetCommit(def.ID, resolution.Commit)
	if err != nil {
		p.recorder.IncDescriptorWrite("failed")
		res.Err = err
		return res
	}
	p.recorder.IncDescriptorWrite(write.String())
	res.Write = write
	return res
}
