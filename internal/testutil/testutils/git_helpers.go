package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// SetupTestGitRepo initializes a temporary git repository for testing.
// Returns the repository, its worktree, and the absolute path to the temporary directory.
func SetupTestGitRepo(t *testing.T) (*git.Repository, *git.Worktree, string) {
	t.Helper()

	tempDir := t.TempDir()

	repo, err := git.PlainInit(tempDir, false)
	if err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	return repo, w, tempDir
}

// Remote is a bare repository fed by a seed working copy, standing in for a
// hosted git remote. Its URL is the bare repository path.
type Remote struct {
	t        *testing.T
	URL      string
	seed     *git.Repository
	seedPath string
	n        int
}

// NewRemote creates a bare remote with one commit pushed to master.
func NewRemote(t *testing.T) *Remote {
	t.Helper()
	tmp := t.TempDir()
	bare := filepath.Join(tmp, "remote.git")
	if _, err := git.PlainInit(bare, true); err != nil {
		t.Fatalf("init bare: %v", err)
	}
	seedPath := filepath.Join(tmp, "seed")
	seed, err := git.PlainInit(seedPath, false)
	if err != nil {
		t.Fatalf("init seed: %v", err)
	}
	if _, err := seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{bare}}); err != nil {
		t.Fatalf("remote: %v", err)
	}
	r := &Remote{t: t, URL: bare, seed: seed, seedPath: seedPath}
	r.Commit()
	r.Push()
	return r
}

// Commit adds a file on the currently checked-out seed branch and returns the new commit id.
// Nothing is published until Push.
func (r *Remote) Commit() string {
	r.t.Helper()
	wt, err := r.seed.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	r.n++
	name := filepath.Join("files", fmt.Sprintf("file-%03d.txt", r.n))
	full := filepath.Join(r.seedPath, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(name), 0o600); err != nil {
		r.t.Fatalf("write: %v", err)
	}
	if _, err := wt.Add(filepath.ToSlash(name)); err != nil {
		r.t.Fatalf("add: %v", err)
	}
	h, err := wt.Commit("commit "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return h.String()
}

// Branch creates branch at the current seed HEAD and checks it out.
func (r *Remote) Branch(name string) {
	r.t.Helper()
	wt, err := r.seed.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name), Create: true}); err != nil {
		r.t.Fatalf("checkout -b %s: %v", name, err)
	}
}

// Checkout switches the seed to an existing branch.
func (r *Remote) Checkout(name string) {
	r.t.Helper()
	wt, err := r.seed.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}); err != nil {
		r.t.Fatalf("checkout %s: %v", name, err)
	}
}

// Push publishes every seed branch to the bare remote.
func (r *Remote) Push() {
	r.t.Helper()
	err := r.seed.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/heads/*"},
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		r.t.Fatalf("push: %v", err)
	}
}

// Head returns the commit id of branch in the bare remote.
func (r *Remote) Head(branch string) string {
	r.t.Helper()
	bare, err := git.PlainOpen(r.URL)
	if err != nil {
		r.t.Fatalf("open bare: %v", err)
	}
	ref, err := bare.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		r.t.Fatalf("resolve %s: %v", branch, err)
	}
	return ref.Hash().String()
}

// SetDefaultBranch points the bare remote's HEAD at branch.
func (r *Remote) SetDefaultBranch(branch string) {
	r.t.Helper()
	bare, err := git.PlainOpen(r.URL)
	if err != nil {
		r.t.Fatalf("open bare: %v", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := bare.Storer.SetReference(head); err != nil {
		r.t.Fatalf("set HEAD: %v", err)
	}
}
