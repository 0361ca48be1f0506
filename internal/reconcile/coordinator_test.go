package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nscale/internal/descriptor"
	"git.home.luguber.info/inful/nscale/internal/git"
	"git.home.luguber.info/inful/nscale/internal/metrics"
	helpers "git.home.luguber.info/inful/nscale/internal/testutil/testutils"
	"git.home.luguber.info/inful/nscale/internal/workspace"
)

// testBackends returns the go-git backend and, when git is installed, the CLI backend.
func testBackends(t *testing.T) map[string]git.Backend {
	t.Helper()
	out := map[string]git.Backend{"native": git.NewNativeBackend()}
	if _, err := exec.LookPath("git"); err == nil {
		out["cli"] = git.NewCLIBackend("git")
	}
	return out
}

func nativeSync(t *testing.T, root, desc string, opts ...Option) (int, error) {
	t.Helper()
	opts = append([]Option{WithBackend(git.NewNativeBackend())}, opts...)
	return Synchronize(context.Background(), root, desc, opts...)
}

func TestSynchronizeRecordsDefaultBranchHead(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "a", URL: remote.URL},
		helpers.Container{ID: "b"},
	)
	before, err := os.ReadFile(desc)
	require.NoError(t, err)

	count, err := nativeSync(t, root, desc)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, remote.Head("master"), helpers.RecordedCommit(t, desc, "a"))
	assert.Empty(t, helpers.RecordedCommit(t, desc, "b"))

	d, err := descriptor.Load(desc)
	require.NoError(t, err)
	orig, err := descriptor.Load(writeTemp(t, before))
	require.NoError(t, err)
	gotB, ok := d.Container("b")
	require.True(t, ok)
	wantB, _ := orig.Container("b")
	assert.Equal(t, wantB, gotB)

	assert.Equal(t, workspace.StateValidClone, workspace.Probe(filepath.Join(root, workspace.DirName, "a")))
	assert.Equal(t, workspace.StateAbsent, workspace.Probe(filepath.Join(root, workspace.DirName, "b")))
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "system.json")
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestSynchronizeLeavesRepositoryLessContainersAlone(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "svc", URL: remote.URL},
		helpers.Container{ID: "db", Commit: "pinned-by-hand"},
	)

	count, err := nativeSync(t, root, desc)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "pinned-by-hand", helpers.RecordedCommit(t, desc, "db"))
}

func TestSynchronizeIsIdempotent(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "a", URL: remote.URL},
		helpers.Container{ID: "b", URL: remote.URL},
	)

	count, err := nativeSync(t, root, desc)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	first, err := os.ReadFile(desc)
	require.NoError(t, err)

	c := NewCoordinator(root, desc, WithBackend(git.NewNativeBackend()))
	count, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	second, err := os.ReadFile(desc)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	for _, r := range c.Results() {
		assert.Equal(t, descriptor.Unchanged, r.Write, r.ContainerID)
		assert.Equal(t, StateValidClone, r.Outcome.Transitions[0], r.ContainerID)
	}
}

func TestSynchronizePicksUpNewRemoteCommits(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root, helpers.Container{ID: "a", URL: remote.URL})

	_, err := nativeSync(t, root, desc)
	require.NoError(t, err)
	old := helpers.RecordedCommit(t, desc, "a")

	next := remote.Commit()
	remote.Push()

	c := NewCoordinator(root, desc, WithBackend(git.NewNativeBackend()))
	count, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, next, helpers.RecordedCommit(t, desc, "a"))
	assert.NotEqual(t, old, next)

	results := c.Results()
	require.Len(t, results, 1)
	assert.True(t, results[0].Outcome.RemoteUpdated)
	assert.Equal(t, descriptor.Written, results[0].Write)
}

func TestSynchronizeFollowsExplicitBranch(t *testing.T) {
	remote := helpers.NewRemote(t)
	remote.Branch("release")
	remote.Commit()
	remote.Push()

	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "main", URL: remote.URL},
		helpers.Container{ID: "rel", URL: remote.URL, Branch: "release"},
	)

	count, err := nativeSync(t, root, desc)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, remote.Head("master"), helpers.RecordedCommit(t, desc, "main"))
	assert.Equal(t, remote.Head("release"), helpers.RecordedCommit(t, desc, "rel"))
}

func TestSynchronizeRelativeWorkspaceRoot(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			remote := helpers.NewRemote(t)
			base := t.TempDir()
			testChdir(t, base)
			url, err := filepath.Rel(base, remote.URL)
			require.NoError(t, err)
			desc := helpers.WriteDescriptor(t, base, helpers.Container{ID: "a", URL: url})

			for i := 0; i < 2; i++ {
				count, err := Synchronize(context.Background(), "proj", "system.json", WithBackend(backend))
				require.NoError(t, err)
				assert.Equal(t, 1, count)
			}
			assert.Equal(t, remote.Head("master"), helpers.RecordedCommit(t, desc, "a"))
			assert.Equal(t, workspace.StateValidClone, workspace.Probe(filepath.Join(base, "proj", workspace.DirName, "a")))
			assert.NoDirExists(t, filepath.Join(base, "proj", workspace.DirName, "proj"))
		})
	}
}

func TestSynchronizeMissingExplicitBranchIsUnknownBranch(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			remote := helpers.NewRemote(t)
			root := t.TempDir()
			desc := helpers.WriteDescriptor(t, root, helpers.Container{ID: "a", URL: remote.URL, Branch: "nope"})

			// the result must not depend on whether the entry existed before the run
			for i := 0; i < 2; i++ {
				count, err := Synchronize(context.Background(), root, desc, WithBackend(backend))
				require.Error(t, err)
				assert.Equal(t, 0, count)
				assert.ErrorIs(t, err, ErrUnknownBranch)
				assert.NotErrorIs(t, err, ErrCloneFailed)
				assert.NotErrorIs(t, err, ErrRecloneFailed)
				assert.Empty(t, helpers.RecordedCommit(t, desc, "a"))
			}
		})
	}
}

func TestSynchronizeRepairsCorruptedEntry(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root, helpers.Container{ID: "a", URL: remote.URL})

	entry := filepath.Join(root, workspace.DirName, "a")
	require.NoError(t, os.MkdirAll(entry, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(entry, "leftover"), []byte("junk"), 0o600))
	require.Equal(t, workspace.StateCorrupted, workspace.Probe(entry))

	count, err := nativeSync(t, root, desc)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, workspace.StateValidClone, workspace.Probe(entry))
	assert.Equal(t, remote.Head("master"), helpers.RecordedCommit(t, desc, "a"))
}

func TestSynchronizeConcurrentStaggeredUpdates(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	const n = 8

	containers := make([]helpers.Container, n)
	fake := newFakeBackend(git.NewNativeBackend())
	for i := range containers {
		id := fmt.Sprintf("c%d", i)
		containers[i] = helpers.Container{ID: id, URL: remote.URL}
		// later containers finish first
		fake.cloneDelay[filepath.Join(root, workspace.DirName, id)] = time.Duration(n-i) * 15 * time.Millisecond
	}
	desc := helpers.WriteDescriptor(t, root, containers...)

	c := NewCoordinator(root, desc, WithBackend(fake), WithMaxConcurrentGit(n))
	count, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n, count)

	head := remote.Head("master")
	for _, ct := range containers {
		assert.Equal(t, head, helpers.RecordedCommit(t, desc, ct.ID), ct.ID)
	}
	assert.Len(t, c.Results(), n)

	d, err := descriptor.Load(desc)
	require.NoError(t, err)
	for i, def := range d.ContainerDefinitions {
		assert.Equal(t, fmt.Sprintf("c%d", i), def.ID, "container order is preserved")
	}
}

func TestSynchronizeIsolatesSingleFailure(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "a", URL: remote.URL},
		helpers.Container{ID: "b", URL: remote.URL},
		helpers.Container{ID: "c", URL: remote.URL},
	)
	fake := newFakeBackend(git.NewNativeBackend())
	_, err := Synchronize(context.Background(), root, desc, WithBackend(fake))
	require.NoError(t, err)
	pinned := helpers.RecordedCommit(t, desc, "b")

	next := remote.Commit()
	remote.Push()
	bPath := filepath.Join(root, workspace.DirName, "b")
	fake.fetchErr[bPath] = errors.New("fatal: the remote end hung up unexpectedly")
	fake.cloneErr[bPath] = errors.New("fatal: the remote end hung up unexpectedly")

	count, err := Synchronize(context.Background(), root, desc, WithBackend(fake))
	require.Error(t, err)
	assert.Equal(t, 2, count)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, []string{"b"}, syncErr.ContainerIDs())
	assert.Equal(t, 3, syncErr.Attempted)
	assert.ErrorIs(t, err, ErrRecloneFailed)
	assert.Contains(t, err.Error(), "container b")

	assert.Equal(t, next, helpers.RecordedCommit(t, desc, "a"))
	assert.Equal(t, next, helpers.RecordedCommit(t, desc, "c"))
	assert.Equal(t, pinned, helpers.RecordedCommit(t, desc, "b"))
}

func TestSynchronizeReportsEveryFailure(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(t.TempDir(), "nope.git")
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "x", URL: missing},
		helpers.Container{ID: "y", URL: missing},
	)

	count, err := nativeSync(t, root, desc)
	require.Error(t, err)
	assert.Equal(t, 0, count)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.ElementsMatch(t, []string{"x", "y"}, syncErr.ContainerIDs())
	assert.ErrorIs(t, err, ErrCloneFailed)
	assert.Contains(t, err.Error(), "2 of 2 containers failed")
}

func TestSynchronizeDescriptorReadFailure(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		root := t.TempDir()
		count, err := nativeSync(t, root, filepath.Join(root, "system.json"))
		require.Error(t, err)
		assert.Equal(t, 0, count)
		assert.ErrorIs(t, err, ErrDescriptorRead)
		_, statErr := os.Stat(filepath.Join(root, workspace.DirName))
		assert.True(t, os.IsNotExist(statErr), "no workspace created")
	})
	t.Run("malformed", func(t *testing.T) {
		root := t.TempDir()
		desc := filepath.Join(root, "system.json")
		require.NoError(t, os.WriteFile(desc, []byte(`{"containerDefinitions": [`), 0o600))
		count, err := nativeSync(t, root, desc)
		require.Error(t, err)
		assert.Equal(t, 0, count)
		assert.ErrorIs(t, err, ErrDescriptorRead)
		var syncErr *SyncError
		assert.False(t, errors.As(err, &syncErr))
	})
}

func TestSynchronizeRejectsDuplicateAndInvalidIDs(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "a", URL: remote.URL},
		helpers.Container{ID: "a", URL: remote.URL},
		helpers.Container{ID: "../escape", URL: remote.URL},
	)

	count, err := nativeSync(t, root, desc)
	require.Error(t, err)
	assert.Equal(t, 1, count)
	assert.ErrorIs(t, err, ErrDuplicateContainer)
	assert.ErrorIs(t, err, ErrInvalidContainerID)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.ElementsMatch(t, []string{"a", "../escape"}, syncErr.ContainerIDs())
	assert.Equal(t, remote.Head("master"), helpers.RecordedCommit(t, desc, "a"))
	_, statErr := os.Stat(filepath.Join(root, "escape"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSynchronizeRecordsMetrics(t *testing.T) {
	remote := helpers.NewRemote(t)
	root := t.TempDir()
	desc := helpers.WriteDescriptor(t, root,
		helpers.Container{ID: "ok", URL: remote.URL},
		helpers.Container{ID: "bad", URL: filepath.Join(t.TempDir(), "missing.git")},
	)
	rec := newCountingRecorder()

	_, err := nativeSync(t, root, desc, WithRecorder(rec))
	require.Error(t, err)
	assert.Equal(t, 1, rec.results[metrics.ResultSuccess])
	assert.Equal(t, 1, rec.results[metrics.ResultFailed])
	assert.Equal(t, 1, rec.writes[descriptor.Written.String()])
	assert.Equal(t, 2, rec.transitions["absent>cloning"])
	assert.Equal(t, 1, rec.transitions["cloning>failed"])
}

func TestSyncErrorMessage(t *testing.T) {
	single := &SyncError{Attempted: 3, Failures: []*ContainerError{{ContainerID: "b", Err: errors.New("boom")}}}
	assert.Equal(t, "container b: boom", single.Error())
	assert.Equal(t, "b", single.First().ContainerID)

	multi := &SyncError{Attempted: 3, Failures: []*ContainerError{
		{ContainerID: "a", Err: errors.New("one")},
		{ContainerID: "c", Err: errors.New("two")},
	}}
	assert.Equal(t, "2 of 3 containers failed to synchronize; first: container a: one\n  container c: two", multi.Error())
	assert.Nil(t, (&SyncError{}).First())
}
