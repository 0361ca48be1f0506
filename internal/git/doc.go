// Package git provides the VCS backends used to keep workspace clones in sync
// with the repositories named in a system descriptor.
//
// Two implementations satisfy Backend:
//   - CLIBackend runs the git binary, inheriting the user's credential helpers and ssh agent
//   - NativeBackend uses go-git in-process and needs no git installation
//
// Limited wraps either one with a weighted semaphore so the number of concurrent
// git invocations stays bounded regardless of how many containers are synchronized.
// Failures are returned as ClassifiedErrors (see ClassifyGitError).
package git
