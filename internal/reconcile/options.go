package reconcile

import (
	"time"

	"git.home.luguber.info/inful/nscale/internal/config"
	"git.home.luguber.info/inful/nscale/internal/git"
	"git.home.luguber.info/inful/nscale/internal/metrics"
	"git.home.luguber.info/inful/nscale/internal/retry"
)

// Defaults used when no option overrides them.
const (
	DefaultTimeout          = 5 * time.Minute
	DefaultMaxConcurrentGit = 4
	DefaultBranch           = "master"
)

// Option customizes a Coordinator or Executor.
type Option func(*settings)

type settings struct {
	backend          git.Backend
	timeout          time.Duration
	maxPipelines     int
	maxConcurrentGit int
	defaultBranch    string
	onFetchFailure   config.FetchFailurePolicy
	retry            retry.Policy
	recorder         metrics.Recorder
}

func newSettings(opts []Option) settings {
	s := settings{
		timeout:          DefaultTimeout,
		maxConcurrentGit: DefaultMaxConcurrentGit,
		defaultBranch:    DefaultBranch,
		onFetchFailure:   config.FetchFailureReclone,
		retry:            retry.DefaultPolicy(),
		recorder:         metrics.NoopRecorder{},
	}
	for _, o := range opts {
		o(&s)
	}
	if s.backend == nil {
		s.backend = git.NewCLIBackend("")
	}
	return s
}

// WithBackend sets the VCS backend (default: the git binary).
func WithBackend(b git.Backend) Option { return func(s *settings) { s.backend = b } }

// WithTimeout bounds every individual VCS invocation.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxPipelines caps concurrently running pipelines; 0 means one per container.
func WithMaxPipelines(n int) Option { return func(s *settings) { s.maxPipelines = n } }

// WithMaxConcurrentGit caps concurrent VCS invocations across all pipelines; 0 disables the cap.
func WithMaxConcurrentGit(n int) Option { return func(s *settings) { s.maxConcurrentGit = n } }

// WithDefaultBranch sets the last-resort branch when neither the container nor the clone names one.
func WithDefaultBranch(b string) Option {
	return func(s *settings) {
		if b != "" {
			s.defaultBranch = b
		}
	}
}

// WithFetchFailurePolicy selects what happens when fetching a valid clone fails.
func WithFetchFailurePolicy(p config.FetchFailurePolicy) Option {
	return func(s *settings) { s.onFetchFailure = p }
}

// WithRetryPolicy enables retries of transient clone failures.
func WithRetryPolicy(p retry.Policy) Option { return func(s *settings) { s.retry = p } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// OptionsFromConfig translates the configuration file into coordinator options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	backend, err := git.New(cfg.Git)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithBackend(backend),
		WithTimeout(cfg.GitTimeout()),
		WithMaxPipelines(cfg.Sync.MaxPipelines),
		WithMaxConcurrentGit(cfg.Git.MaxConcurrent),
		WithDefaultBranch(cfg.Git.DefaultBranch),
		WithFetchFailurePolicy(cfg.Git.OnFetchFailure),
		WithRetryPolicy(retry.FromConfig(cfg)),
	}, nil
}
