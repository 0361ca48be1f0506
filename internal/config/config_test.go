package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	testChdir(t, t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, GitBackendCLI, cfg.Git.Backend)
	assert.Equal(t, "git", cfg.Git.Binary)
	assert.Equal(t, 5*time.Minute, cfg.GitTimeout())
	assert.Equal(t, "master", cfg.Git.DefaultBranch)
	assert.Equal(t, FetchFailureReclone, cfg.Git.OnFetchFailure)
	assert.Equal(t, 0, cfg.Git.Retry.MaxRetries)
	assert.Equal(t, RetryBackoffLinear, cfg.Git.Retry.Backoff)
	assert.Positive(t, cfg.Git.MaxConcurrent)
	assert.Equal(t, "system.json", cfg.Sync.Descriptor)
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	testChdir(t, t.TempDir())
	path := writeConfig(t, `
workspace:
  root: /srv/nscale
git:
  backend: Go-Git
  timeout: 45s
  max_concurrent: 2
  default_branch: main
  on_fetch_failure: propagate
  retry:
    max_retries: 3
    backoff: EXPONENTIAL
    initial_delay: 200ms
    max_delay: 2s
sync:
  max_pipelines: 6
metrics:
  textfile: /var/lib/node_exporter/nscale.prom
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/nscale", cfg.WorkspaceRoot("/project"))
	assert.Equal(t, GitBackendNative, cfg.Git.Backend)
	assert.Equal(t, 45*time.Second, cfg.GitTimeout())
	assert.Equal(t, 2, cfg.Git.MaxConcurrent)
	assert.Equal(t, FetchFailurePropagate, cfg.Git.OnFetchFailure)
	assert.Equal(t, RetryBackoffExponential, cfg.Git.Retry.Backoff)
	initial, maxDelay := cfg.RetryDelays()
	assert.Equal(t, 200*time.Millisecond, initial)
	assert.Equal(t, 2*time.Second, maxDelay)
	assert.Equal(t, 6, cfg.Sync.MaxPipelines)
	assert.Equal(t, "/var/lib/node_exporter/nscale.prom", cfg.Metrics.Textfile)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv("NSCALE_TEST_ROOT", "/tmp/from-env")
	path := writeConfig(t, "workspace:\n  root: ${NSCALE_TEST_ROOT}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env", cfg.Workspace.Root)
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NSCALE_TEST_A=file\nNSCALE_TEST_B=file\n"), 0o600))
	t.Setenv("NSCALE_TEST_A", "process")
	t.Setenv("NSCALE_TEST_B", "")
	require.NoError(t, os.Unsetenv("NSCALE_TEST_B"))

	path := writeConfig(t, "git:\n  default_branch: ${NSCALE_TEST_A}\nworkspace:\n  root: ${NSCALE_TEST_B}\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "process", cfg.Git.DefaultBranch)
	assert.Equal(t, "file", cfg.Workspace.Root)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"backend":       "git:\n  backend: svn\n",
		"timeout":       "git:\n  timeout: soon\n",
		"fetch policy":  "git:\n  on_fetch_failure: ignore\n",
		"retry backoff": "git:\n  retry:\n    backoff: random\n",
		"retry delays":  "git:\n  retry:\n    initial_delay: 10s\n    max_delay: 1s\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			testChdir(t, t.TempDir())
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
			assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
		})
	}
}

func TestDescriptorPath(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.Equal(t, filepath.Join("/p", "system.json"), cfg.DescriptorPath("/p"))

	cfg.Sync.Descriptor = "/abs/sys.json"
	assert.Equal(t, "/abs/sys.json", cfg.DescriptorPath("/p"))
	assert.Equal(t, "/p", cfg.WorkspaceRoot("/p"))
}

func TestInitWritesLoadableFile(t *testing.T) {
	testChdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, Init(path, false))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, GitBackendCLI, cfg.Git.Backend)

	err = Init(path, false)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	require.NoError(t, Init(path, true))
}
