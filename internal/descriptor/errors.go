package descriptor

import (
	"errors"
	"fmt"

	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
)

var (
	// ErrRead marks failures to read or parse the descriptor.
	ErrRead = errors.New("descriptor read failed")
	// ErrWrite marks failures to encode or persist the descriptor.
	ErrWrite = errors.New("descriptor write failed")
)

func readError(path string, err error) error {
	return foundationerrors.DescriptorError("failed to read system descriptor").
		WithCause(fmt.Errorf("%w: %w", ErrRead, err)).
		WithContext("path", path).
		Build()
}

func writeError(path string, err error) error {
	return foundationerrors.DescriptorError("failed to write system descriptor").
		WithCause(fmt.Errorf("%w: %w", ErrWrite, err)).
		WithContext("path", path).
		Build()
}
