package workspace

import (
	"os"
	"path/filepath"
)

// State is the observed condition of a workspace entry.
type State int

const (
	StateAbsent State = iota
	StateValidClone
	StateCorrupted
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateValidClone:
		return "valid-clone"
	case StateCorrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// Probe classifies the entry at path without modifying anything.
// A valid clone is a directory containing a .git directory; any other
// existing (or unreadable) path is corrupted.
func Probe(path string) State {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StateAbsent
		}
		return StateCorrupted
	}
	if !fi.IsDir() {
		return StateCorrupted
	}
	gi, err := os.Lstat(filepath.Join(path, ".git"))
	if err != nil || !gi.IsDir() {
		return StateCorrupted
	}
	return StateValidClone
}
