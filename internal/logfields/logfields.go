package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID       = "run_id"
	KeyContainerID = "container_id"
	KeyRepo        = "repository"
	KeyBranch      = "branch"
	KeyCommit      = "commit"
	KeyPath        = "path"
	KeyState       = "state"
	KeyFromState   = "from_state"
	KeyOperation   = "operation"
	KeyBackend     = "backend"
	KeyAttempt     = "attempt"
	KeyWriteResult = "write_result"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func ContainerID(id string) slog.Attr { return slog.String(KeyContainerID, id) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func FromState(s string) slog.Attr    { return slog.String(KeyFromState, s) }
func Operation(op string) slog.Attr   { return slog.String(KeyOperation, op) }
func Backend(name string) slog.Attr   { return slog.String(KeyBackend, name) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func WriteResult(r string) slog.Attr  { return slog.String(KeyWriteResult, r) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
