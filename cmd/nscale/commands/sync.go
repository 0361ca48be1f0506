package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/nscale/internal/config"
	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
	"git.home.luguber.info/inful/nscale/internal/metrics"
	"git.home.luguber.info/inful/nscale/internal/reconcile"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Project        string        `arg:"" optional:"" type:"path" default:"." help:"Project directory containing the descriptor"`
	Descriptor     string        `type:"path" help:"Descriptor file (default <project>/system.json)"`
	Workspace      string        `type:"path" help:"Directory holding workspace/<container-id> (default <project>)"`
	Backend        string        `help:"Git backend (cli|native)" env:"NSCALE_GIT_BACKEND"`
	Timeout        time.Duration `help:"Upper bound for every git invocation"`
	MaxConcurrent  int           `name:"max-concurrent" help:"Concurrent git invocations across all containers"`
	MaxPipelines   int           `name:"max-pipelines" help:"Concurrent container pipelines (0 = one per container)"`
	OnFetchFailure string        `name:"on-fetch-failure" help:"What to do when fetching a clone fails (reclone|propagate)"`
	MetricsFile    string        `name:"metrics-file" type:"path" help:"Write Prometheus metrics to this textfile after the run" env:"NSCALE_METRICS_FILE"`
}

func (s *SyncCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := s.applyOverrides(cfg); err != nil {
		return err
	}
	descPath, wsRoot, err := ProjectPaths(cfg, s.Project, s.Descriptor, s.Workspace)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	recorder := metrics.NewPrometheusRecorder(nil)
	return RunSync(ctx, g, cfg, descPath, wsRoot, recorder, s.metricsFile(cfg))
}

// applyOverrides copies explicit flags onto the loaded configuration, normalizes
// them and revalidates.
func (s *SyncCmd) applyOverrides(cfg *config.Config) error {
	if s.Backend != "" {
		cfg.Git.Backend = config.GitBackend(s.Backend)
	}
	if s.Timeout > 0 {
		cfg.Git.Timeout = s.Timeout.String()
	}
	if s.MaxConcurrent > 0 {
		cfg.Git.MaxConcurrent = s.MaxConcurrent
	}
	if s.MaxPipelines > 0 {
		cfg.Sync.MaxPipelines = s.MaxPipelines
	}
	if s.OnFetchFailure != "" {
		cfg.Git.OnFetchFailure = config.FetchFailurePolicy(s.OnFetchFailure)
	}
	config.ApplyDefaults(cfg)
	return cfg.Validate()
}

func (s *SyncCmd) metricsFile(cfg *config.Config) string {
	if s.MetricsFile != "" {
		return s.MetricsFile
	}
	return cfg.Metrics.Textfile
}

// RunSync synchronizes one project and prints a line per recorded container.
func RunSync(ctx context.Context, g *Global, cfg *config.Config, descPath, wsRoot string,
	recorder *metrics.PrometheusRecorder, metricsFile string,
) error {
	opts, err := reconcile.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, reconcile.WithRecorder(recorder))

	coordinator := reconcile.NewCoordinator(wsRoot, descPath, opts...)
	count, runErr := coordinator.Run(ctx)

	results := coordinator.Results()
	for _, r := range results {
		if r.Recorded() {
			_, _ = fmt.Fprintf(g.Out, "%s is at %s\n", r.ContainerID, r.Commit)
		}
	}
	if len(results) > 0 || runErr == nil {
		_, _ = fmt.Fprintf(g.Out, "Synchronized %d of %d containers\n", count, len(results))
	}

	if metricsFile != "" {
		if err := recorder.WriteTextfile(metricsFile); err != nil {
			slog.Warn("Failed to write metrics textfile", "path", metricsFile, "error", err)
		}
	}

	if runErr != nil && !foundationerrors.IsClassified(runErr) {
		return foundationerrors.WrapError(runErr, foundationerrors.CategorySync, "synchronization incomplete").Build()
	}
	return runErr
}
