package reconcile

import "git.home.luguber.info/inful/nscale/internal/workspace"

// State is a step of the per-container synchronization state machine.
type State int

const (
	StateAbsent State = iota
	StateValidClone
	StateCorrupted
	StateCloning
	StateFetching
	StateRemoteUpdated
	StateFetchFailed
	StateReclone
	StateReady
	StateFailed
)

var stateNames = [...]string{
	StateAbsent:        "absent",
	StateValidClone:    "valid-clone",
	StateCorrupted:     "corrupted",
	StateCloning:       "cloning",
	StateFetching:      "fetching",
	StateRemoteUpdated: "remote-updated",
	StateFetchFailed:   "fetch-failed",
	StateReclone:       "reclone",
	StateReady:         "ready",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether the state machine stops in s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// initialState maps the probed workspace entry onto the state machine's entry states.
func initialState(ws workspace.State) State {
	switch ws {
	case workspace.StateAbsent:
		return StateAbsent
	case workspace.StateValidClone:
		return StateValidClone
	default:
		return StateCorrupted
	}
}
