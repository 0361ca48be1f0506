package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/nscale/internal/descriptor"
	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
)

var (
	// ErrCloneFailed: the initial clone of an absent entry failed.
	ErrCloneFailed = errors.New("clone failed")
	// ErrFetchFailed: fetching a valid clone failed and the policy is to propagate.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrRecloneFailed: destroying or re-cloning an entry failed.
	ErrRecloneFailed = errors.New("reclone failed")
	// ErrUnknownBranch: the branch does not resolve to a commit in the clone.
	ErrUnknownBranch = errors.New("unknown branch")
	// ErrResolveFailed: the clone could not be queried for the branch's commit.
	ErrResolveFailed = errors.New("resolve failed")
	// ErrInvalidContainerID: the container id cannot name a workspace entry.
	ErrInvalidContainerID = errors.New("invalid container id")
	// ErrDuplicateContainer: a later container repeats an id already being synchronized.
	ErrDuplicateContainer = errors.New("duplicate container id")

	ErrDescriptorRead  = descriptor.ErrRead
	ErrDescriptorWrite = descriptor.ErrWrite
)

// taggedError attaches a sentinel to a cause without repeating the sentinel text.
type taggedError struct {
	sentinel error
	cause    error
}

func (e *taggedError) Error() string   { return e.cause.Error() }
func (e *taggedError) Unwrap() []error { return []error{e.sentinel, e.cause} }

// failure builds the classified error for a failed step. The category follows
// the cause when it is classified (auth, network, ...), otherwise sync.
func failure(sentinel error, cause error, containerID string) error {
	category := foundationerrors.CategorySync
	if ce, ok := foundationerrors.AsClassified(cause); ok {
		category = ce.Category()
	}
	var wrapped error = sentinel
	if cause != nil {
		wrapped = &taggedError{sentinel: sentinel, cause: cause}
	}
	return foundationerrors.WrapError(wrapped, category, sentinel.Error()).
		WithContext("container_id", containerID).
		Build()
}

// ContainerError tags a pipeline failure with the container it belongs to.
type ContainerError struct {
	ContainerID string
	Err         error
}

func (e *ContainerError) Error() string { return fmt.Sprintf("container %s: %v", e.ContainerID, e.Err) }
func (e *ContainerError) Unwrap() error { return e.Err }

// SyncError aggregates every failed container of a run, in the order the
// failures were observed. The first observed failure leads the message.
type SyncError struct {
	Failures  []*ContainerError
	Attempted int
}

func (e *SyncError) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d containers failed to synchronize; first: %v", len(e.Failures), e.Attempted, e.Failures[0])
	for _, f := range e.Failures[1:] {
		fmt.Fprintf(&b, "\n  %v", f)
	}
	return b.String()
}

// First returns the first observed failure.
func (e *SyncError) First() *ContainerError {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[0]
}

// Unwrap exposes every failure to errors.Is / errors.As.
func (e *SyncError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// ContainerIDs lists the failed containers in observation order.
func (e *SyncError) ContainerIDs() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ContainerID
	}
	return ids
}
