package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/nscale/internal/logfields"
)

// CommandError describes a failed git invocation, including its stderr.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// exitCode returns the process exit code, or -1 when the command did not run to completion.
func (e *CommandError) exitCode() int {
	var ee *exec.ExitError
	if stderrors.As(e.Err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// CLIBackend runs the git binary as a subprocess.
type CLIBackend struct {
	binary    string
	waitDelay time.Duration
}

// NewCLIBackend creates a backend invoking binary ("git" when empty).
func NewCLIBackend(binary string) *CLIBackend {
	if binary == "" {
		binary = "git"
	}
	return &CLIBackend{binary: binary, waitDelay: 5 * time.Second}
}

// run executes git in dir and returns trimmed stdout. Interactive prompts are
// disabled so a missing credential fails instead of blocking until the timeout.
func (b *CLIBackend) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, b.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.WaitDelay = b.waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running git", slog.String("args", strings.Join(args, " ")), logfields.Path(dir))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Clone runs git clone from the current directory, so relative paths and
// local repository URLs resolve the same way they do for NativeBackend.
func (b *CLIBackend) Clone(ctx context.Context, url, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := b.run(ctx, "", "clone", "--quiet", "--no-tags", "--", url, path); err != nil {
		return ClassifyGitError(err, OpClone, url)
	}
	return nil
}

// SetRemoteURL repoints origin, adding the remote when the clone has none.
func (b *CLIBackend) SetRemoteURL(ctx context.Context, path, url string) error {
	_, err := b.run(ctx, path, "remote", "set-url", RemoteName, url)
	if err == nil {
		return nil
	}
	var ce *CommandError
	if stderrors.As(err, &ce) && strings.Contains(strings.ToLower(ce.Stderr), "no such remote") {
		if _, err = b.run(ctx, path, "remote", "add", RemoteName, url); err == nil {
			return nil
		}
	}
	return ClassifyGitError(err, OpSetRemote, url)
}

// remoteRefs snapshots refs/remotes/origin as "name sha" lines.
func (b *CLIBackend) remoteRefs(ctx context.Context, path string) (string, error) {
	return b.run(ctx, path, "for-each-ref", "--format=%(refname) %(objectname)", "refs/remotes/"+RemoteName)
}

// Fetch runs a pruning fetch of every origin head and compares the remote
// refs before and after.
func (b *CLIBackend) Fetch(ctx context.Context, path string) (bool, error) {
	before, err := b.remoteRefs(ctx, path)
	if err != nil {
		return false, ClassifyGitError(err, OpFetch, "")
	}
	if _, err := b.run(ctx, path, "fetch", "--quiet", "--prune", "--no-tags", RemoteName, FetchRefSpec); err != nil {
		return false, ClassifyGitError(err, OpFetch, "")
	}
	after, err := b.remoteRefs(ctx, path)
	if err != nil {
		return false, ClassifyGitError(err, OpFetch, "")
	}
	return before != after, nil
}

// ResolveRemoteRef resolves refs/remotes/origin/<branch> with rev-parse.
func (b *CLIBackend) ResolveRemoteRef(ctx context.Context, path, branch string) (string, error) {
	ref := remoteRefsRoot + branch
	out, err := b.run(ctx, path, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		var ce *CommandError
		if stderrors.As(err, &ce) && ce.exitCode() == 1 {
			return "", fmt.Errorf("%w: %s", ErrRefNotFound, ref)
		}
		return "", ClassifyGitError(err, OpResolve, "")
	}
	return out, nil
}

// RemoteHEAD reads the target of refs/remotes/origin/HEAD.
func (b *CLIBackend) RemoteHEAD(ctx context.Context, path string) (string, error) {
	out, err := b.run(ctx, path, "symbolic-ref", "--quiet", remoteRefsRoot+"HEAD")
	if err != nil {
		var ce *CommandError
		if stderrors.As(err, &ce) && ce.exitCode() == 1 {
			return "", fmt.Errorf("%w: %sHEAD", ErrRefNotFound, remoteRefsRoot)
		}
		return "", ClassifyGitError(err, OpRemoteHEAD, "")
	}
	return strings.TrimPrefix(out, remoteRefsRoot), nil
}

// LocalBranch returns the short name of the checked-out branch.
func (b *CLIBackend) LocalBranch(ctx context.Context, path string) (string, error) {
	out, err := b.run(ctx, path, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		var ce *CommandError
		if stderrors.As(err, &ce) && ce.exitCode() == 1 {
			return "", fmt.Errorf("%w: HEAD is detached", ErrRefNotFound)
		}
		return "", ClassifyGitError(err, OpLocalBranch, "")
	}
	return out, nil
}
