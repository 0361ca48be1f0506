package git

import (
	"context"
	"errors"
	"fmt"
	"testing"

	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
)

func TestClassifyGitError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		category  foundationerrors.ErrorCategory
		transient bool
	}{
		{"auth", errors.New("fatal: Authentication failed for 'https://example.com/r.git/'"), foundationerrors.CategoryAuth, false},
		{"not found", errors.New("remote: Repository not found."), foundationerrors.CategoryNotFound, false},
		{"missing branch", errors.New("warning: Remote branch nope not found in upstream origin"), foundationerrors.CategoryNotFound, false},
		{"network", errors.New("fatal: unable to access 'https://example.com/': Could not resolve host: example.com"), foundationerrors.CategoryNetwork, true},
		{"hangup", errors.New("fatal: the remote end hung up unexpectedly; remote hung up"), foundationerrors.CategoryNetwork, true},
		{"deadline", fmt.Errorf("clone: %w", context.DeadlineExceeded), foundationerrors.CategoryNetwork, true},
		{"canceled", context.Canceled, foundationerrors.CategoryRuntime, false},
		{"unknown", errors.New("something odd"), foundationerrors.CategoryGit, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ClassifyGitError(tc.err, OpClone, "https://example.com/r.git")
			ce, ok := foundationerrors.AsClassified(err)
			if !ok {
				t.Fatalf("expected classified error, got %T", err)
			}
			if ce.Category() != tc.category {
				t.Fatalf("expected category %s, got %s", tc.category, ce.Category())
			}
			if ce.IsTransient() != tc.transient {
				t.Fatalf("expected transient=%v", tc.transient)
			}
			if !errors.Is(err, tc.err) {
				t.Fatal("expected cause to be preserved")
			}
		})
	}
}

func TestClassifyGitErrorPassthrough(t *testing.T) {
	if ClassifyGitError(nil, OpFetch, "") != nil {
		t.Fatal("expected nil for nil error")
	}
	already := foundationerrors.NetworkError("x").Build()
	if got := ClassifyGitError(already, OpFetch, ""); got != already {
		t.Fatal("expected classified errors to pass through unchanged")
	}
}
