package descriptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

// WriteResult reports what SetCommit did to the descriptor.
type WriteResult int

const (
	// Written means the commit was stored and the file rewritten.
	Written WriteResult = iota + 1
	// Unchanged means the descriptor already held the commit; the file was not touched.
	Unchanged
	// ContainerRemoved means no container with the id exists any more.
	ContainerRemoved
)

func (r WriteResult) String() string {
	switch r {
	case Written:
		return "written"
	case Unchanged:
		return "unchanged"
	case ContainerRemoved:
		return "container_removed"
	default:
		return "none"
	}
}

// Recorded reports whether the commit is present in the descriptor after the call.
func (r WriteResult) Recorded() bool {
	return r == Written || r == Unchanged
}

// Writer serializes commit updates to one descriptor file. Writers for the same
// file share a process-wide lock, and each update re-reads the file, so edits
// made between updates are preserved.
type Writer struct {
	mu   *sync.Mutex
	path string
}

var (
	locksMu sync.Mutex
	locks   = map[string]*sync.Mutex{}
)

// lockFor returns the mutex guarding the descriptor at path.
func lockFor(path string) *sync.Mutex {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	locksMu.Lock()
	defer locksMu.Unlock()
	m, ok := locks[key]
	if !ok {
		m = &sync.Mutex{}
		locks[key] = m
	}
	return m
}

// NewWriter returns a writer for the descriptor at path.
func NewWriter(path string) *Writer {
	return &Writer{mu: lockFor(path), path: path}
}

// Path returns the descriptor location.
func (w *Writer) Path() string { return w.path }

// SetCommit records commit as specific.commit of the first container with id.
func (w *Writer) SetCommit(id, commit string) (WriteResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	raw, err := os.ReadFile(w.path)
	if err != nil {
		return 0, readError(w.path, err)
	}
	data := jsonc.ToJSON(raw)
	if !gjson.ValidBytes(data) {
		return 0, readError(w.path, errors.New("invalid JSON"))
	}

	idx := -1
	for i, c := range gjson.GetBytes(data, "containerDefinitions").Array() {
		if c.Get("id").String() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ContainerRemoved, nil
	}

	key := fmt.Sprintf("containerDefinitions.%d.specific.commit", idx)
	if cur := gjson.GetBytes(data, key); cur.Type == gjson.String && cur.Str == commit {
		return Unchanged, nil
	}

	patched, err := sjson.SetBytes(data, key, commit)
	if err != nil {
		return 0, writeError(w.path, err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(patched), "", "  "); err != nil {
		return 0, writeError(w.path, err)
	}
	buf.WriteByte('\n')

	if err := writeFileAtomic(w.path, buf.Bytes()); err != nil {
		return 0, writeError(w.path, err)
	}
	return Written, nil
}

// writeFileAtomic replaces path with data via a temporary file in the same
// directory, keeping the original permissions.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace descriptor: %w", err)
	}
	return nil
}
