package reconcile

import (
	"context"
	"time"

	"git.home.luguber.info/inful/nscale/internal/config"
	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
	"git.home.luguber.info/inful/nscale/internal/git"
	"git.home.luguber.info/inful/nscale/internal/logfields"
	"git.home.luguber.info/inful/nscale/internal/metrics"
	"git.home.luguber.info/inful/nscale/internal/observability"
	"git.home.luguber.info/inful/nscale/internal/retry"
	"git.home.luguber.info/inful/nscale/internal/workspace"
)

// Target identifies the workspace entry to synchronize and where it comes from.
type Target struct {
	ContainerID string
	URL         string
	Branch      string
	Path        string
}

// Outcome records how the state machine ran for one entry.
type Outcome struct {
	Final         State
	Transitions   []State // every state entered, starting with the probed one
	Path          string
	RemoteUpdated bool
}

// invoker runs one VCS call under the per-invocation timeout and records it.
type invoker struct {
	timeout  time.Duration
	recorder metrics.Recorder
}

func (i invoker) call(ctx context.Context, op string, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	start := time.Now()
	err := fn(cctx)
	d := time.Since(start)
	i.recorder.ObserveGitOperation(op, d, err == nil)
	if err != nil {
		observability.DebugContext(ctx, "Git operation failed",
			logfields.Operation(op),
			logfields.DurationMS(float64(d.Milliseconds())),
			logfields.Error(err))
	}
	return err
}

// Executor drives a workspace entry to a ready clone.
type Executor struct {
	backend        git.Backend
	ws             *workspace.Manager
	onFetchFailure config.FetchFailurePolicy
	retry          retry.Policy
	recorder       metrics.Recorder
	invoker
}

// NewExecutor creates an executor for entries managed by ws.
func NewExecutor(backend git.Backend, ws *workspace.Manager, opts ...Option) *Executor {
	s := newSettings(append([]Option{WithBackend(backend)}, opts...))
	return newExecutor(s, ws)
}

func newExecutor(s settings, ws *workspace.Manager) *Executor {
	return &Executor{
		backend:        s.backend,
		ws:             ws,
		onFetchFailure: s.onFetchFailure,
		retry:          s.retry,
		recorder:       s.recorder,
		invoker:        invoker{timeout: s.timeout, recorder: s.recorder},
	}
}

// execution is the mutable state of a single Run.
type execution struct {
	*Executor
	target   Target
	out      Outcome
	fetchErr error
	err      error
}

// Run probes the entry and steps the state machine until Ready or Failed.
// The returned error is non-nil exactly when the final state is Failed.
func (e *Executor) Run(ctx context.Context, t Target) (Outcome, error) {
	x := &execution{Executor: e, target: t, out: Outcome{Path: t.Path}}
	state := initialState(workspace.Probe(t.Path))
	x.out.Transitions = append(x.out.Transitions, state)
	observability.DebugContext(ctx, "Probed workspace entry", logfields.State(state.String()), logfields.Path(t.Path))

	for !state.Terminal() {
		next := x.step(ctx, state)
		x.enter(ctx, state, next)
		state = next
	}
	x.out.Final = state
	return x.out, x.err
}

func (x *execution) enter(ctx context.Context, from, to State) {
	x.out.Transitions = append(x.out.Transitions, to)
	x.recorder.IncStateTransition(from.String(), to.String())
	observability.DebugContext(observability.WithState(ctx, to.String()), "State transition",
		logfields.FromState(from.String()))
}

func (x *execution) step(ctx context.Context, s State) State {
	switch s {
	case StateAbsent:
		return StateCloning
	case StateValidClone:
		return StateFetching
	case StateCorrupted:
		observability.WarnContext(ctx, "Workspace entry is not a valid clone, recloning", logfields.Path(x.target.Path))
		return StateReclone
	case StateCloning:
		if err := x.clone(ctx); err != nil {
			x.err = failure(ErrCloneFailed, err, x.target.ContainerID)
			return StateFailed
		}
		return StateReady
	case StateFetching:
		changed, err := x.fetch(ctx)
		if err != nil {
			x.fetchErr = err
			return StateFetchFailed
		}
		if changed {
			return StateRemoteUpdated
		}
		return StateReady
	case StateRemoteUpdated:
		x.out.RemoteUpdated = true
		return StateReady
	case StateFetchFailed:
		if x.onFetchFailure == config.FetchFailurePropagate {
			x.err = failure(ErrFetchFailed, x.fetchErr, x.target.ContainerID)
			return StateFailed
		}
		observability.WarnContext(ctx, "Fetch failed, recloning", logfields.Error(x.fetchErr))
		return StateReclone
	case StateReclone:
		if err := x.ws.Remove(x.target.Path); err != nil {
			x.err = failure(ErrRecloneFailed, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem,
				"failed to remove workspace entry").Build(), x.target.ContainerID)
			return StateFailed
		}
		if err := x.clone(ctx); err != nil {
			x.err = failure(ErrRecloneFailed, err, x.target.ContainerID)
			return StateFailed
		}
		return StateReady
	default:
		return s
	}
}

// fetch points origin at the descriptor URL and updates the remote-tracking refs.
func (x *execution) fetch(ctx context.Context) (bool, error) {
	err := x.call(ctx, git.OpSetRemote, func(ctx context.Context) error {
		return x.backend.SetRemoteURL(ctx, x.target.Path, x.target.URL)
	})
	if err != nil {
		return false, err
	}
	var changed bool
	err = x.call(ctx, git.OpFetch, func(ctx context.Context) error {
		var ferr error
		changed, ferr = x.backend.Fetch(ctx, x.target.Path)
		return ferr
	})
	return changed, err
}

// clone clones into an absent entry. Partial results of a failed attempt are
// removed so the entry is absent again for the next attempt or run.
func (x *execution) clone(ctx context.Context) error {
	if err := x.ws.Ensure(); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to prepare workspace").Build()
	}
	return x.retry.Do(ctx, foundationerrors.IsTransientError, func(attempt int) error {
		if attempt > 1 {
			observability.InfoContext(ctx, "Retrying clone", logfields.Attempt(attempt), logfields.Repository(x.target.URL))
		}
		err := x.call(ctx, git.OpClone, func(ctx context.Context) error {
			return x.backend.Clone(ctx, x.target.URL, x.target.Path)
		})
		if err != nil {
			if rmErr := x.ws.Remove(x.target.Path); rmErr != nil {
				observability.WarnContext(ctx, "Failed to remove partial clone", logfields.Error(rmErr))
			}
		}
		return err
	})
}
