package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/nscale/internal/logfields"
)

// DirName is the subdirectory of the workspace root that holds one entry per container.
const DirName = "workspace"

// ErrInvalidID is returned for container ids that cannot name a workspace entry.
var ErrInvalidID = errors.New("invalid container id")

// Manager resolves and maintains workspace entries below a fixed root.
type Manager struct {
	root string
	dir  string
}

// NewManager creates a manager for <root>/workspace. A relative root is
// resolved against the current directory once, so entry paths stay valid for
// subprocesses started elsewhere.
func NewManager(root string) *Manager {
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Manager{
		root: root,
		dir:  filepath.Join(root, DirName),
	}
}

// Root returns the absolute workspace root.
func (m *Manager) Root() string { return m.root }

// Dir returns <root>/workspace.
func (m *Manager) Dir() string { return m.dir }

// PathFor returns the entry path for a container id. It is pure; call ValidateID first
// when the id comes from untrusted input.
func (m *Manager) PathFor(id string) string {
	return filepath.Join(m.dir, id)
}

// ValidateID rejects ids that would not map to a direct child of the workspace directory.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, filepath.Separator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, id)
	case strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidID, id)
	}
	return nil
}

// Ensure creates the workspace directory if needed.
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return nil
}

// Remove deletes an entry and everything below it. A missing entry is not an error.
func (m *Manager) Remove(path string) error {
	if !m.contains(path) {
		return fmt.Errorf("refusing to remove %s: outside workspace %s", path, m.dir)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove workspace entry: %w", err)
	}
	slog.Debug("Removed workspace entry", logfields.Path(path))
	return nil
}

// contains reports whether path is a strict descendant of the workspace directory.
func (m *Manager) contains(path string) bool {
	dir, err := filepath.Abs(m.dir)
	if err != nil {
		return false
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Entries lists the names of existing workspace entries, sorted.
func (m *Manager) Entries() ([]string, error) {
	des, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list workspace: %w", err)
	}
	names := make([]string, 0, len(des))
	for _, de := range des {
		names = append(names, de.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Clean removes the named entries, or every entry when ids is empty.
// It returns the ids that were actually present.
func (m *Manager) Clean(ids ...string) ([]string, error) {
	if len(ids) == 0 {
		all, err := m.Entries()
		if err != nil {
			return nil, err
		}
		ids = all
	}
	var removed []string
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return removed, err
		}
		path := m.PathFor(id)
		if Probe(path) == StateAbsent {
			continue
		}
		if err := m.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}
	slog.Info("Cleaned workspace", logfields.Path(m.dir), slog.Int("removed", len(removed)))
	return removed, nil
}
