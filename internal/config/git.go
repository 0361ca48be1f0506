package config

import "strings"

// GitBackend selects the VCS implementation used for clone/fetch/resolve.
type GitBackend string

const (
	// GitBackendCLI shells out to the git binary (inherits the user's credential helpers and ssh agent).
	GitBackendCLI GitBackend = "cli"
	// GitBackendNative uses the in-process go-git implementation.
	GitBackendNative GitBackend = "native"
)

// NormalizeGitBackend returns the typed backend or empty string for unknown input.
func NormalizeGitBackend(raw string) GitBackend {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(GitBackendCLI), "git", "exec":
		return GitBackendCLI
	case string(GitBackendNative), "go-git", "gogit":
		return GitBackendNative
	default:
		return ""
	}
}

// FetchFailurePolicy decides what happens to a valid clone whose fetch fails.
type FetchFailurePolicy string

const (
	// FetchFailureReclone destroys the entry and clones it again.
	FetchFailureReclone FetchFailurePolicy = "reclone"
	// FetchFailurePropagate reports the fetch failure for the container and leaves the entry untouched.
	FetchFailurePropagate FetchFailurePolicy = "propagate"
)

// NormalizeFetchFailurePolicy returns the typed policy or empty string for unknown input.
func NormalizeFetchFailurePolicy(raw string) FetchFailurePolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(FetchFailureReclone):
		return FetchFailureReclone
	case string(FetchFailurePropagate), "fail":
		return FetchFailurePropagate
	default:
		return ""
	}
}
