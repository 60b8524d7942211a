// Package workspace owns the single on-disk git clone the service
// materializes commits against.
package workspace

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/spf13/afero"

	"github.com/cloudshipai/gitconfd/internal/materializer"
)

// Workspace is a single local clone on disk. At most one resolver
// operation mutates it at a time: callers serialize access with
// Lock/Unlock, and every method below assumes the caller already holds
// the lock. The workspace never rewrites refs other than HEAD.
type Workspace struct {
	mu sync.Mutex

	url         string
	credentials Credentials
	branch      string
	path        string

	repo        *git.Repository
	lastFetched time.Time
}

// New constructs a Workspace bound to url/credentials/path. branch, if
// non-empty, is the ref Initialize clones; leave empty for the remote's
// default branch.
func New(url string, credentials Credentials, branch, path string) *Workspace {
	return &Workspace{url: url, credentials: credentials, branch: branch, path: path}
}

// Lock and Unlock serialize every other method on Workspace. A resolver
// miss holds the lock across Checkout and the subsequent loader
// tree-walk as one critical section.
func (w *Workspace) Lock()   { w.mu.Lock() }
func (w *Workspace) Unlock() { w.mu.Unlock() }

// Path returns the on-disk location of the clone. Caller must hold the
// lock.
func (w *Workspace) Path() string { return w.path }

// WorkingTreeFS exposes the working tree as an afero.Fs rooted at Path,
// the shape the config loader walks. Caller must hold the lock.
func (w *Workspace) WorkingTreeFS() afero.Fs {
	return afero.NewBasePathFs(afero.NewOsFs(), w.path)
}

// Initialize clones the configured URL into the workspace's path. Caller
// must hold the lock.
func (w *Workspace) Initialize() error {
	auth, err := w.credentials.AuthMethod()
	if err != nil {
		return materializer.Wrap(materializer.ErrCloneFailure, "workspace.Initialize", err)
	}

	opts := &git.CloneOptions{URL: w.url, Auth: auth}
	if w.branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(w.branch)
	}

	repo, err := git.PlainClone(w.path, false, opts)
	if err != nil {
		return materializer.Wrap(materializer.ErrCloneFailure, "workspace.Initialize", err)
	}

	w.repo = repo
	w.lastFetched = time.Now()
	return nil
}

// Fetch refreshes refs from remoteName (default "origin") using the
// workspace's configured credentials. Caller must hold the lock.
func (w *Workspace) Fetch(remoteName string) error {
	if remoteName == "" {
		remoteName = "origin"
	}

	auth, err := w.credentials.AuthMethod()
	if err != nil {
		return materializer.Wrap(materializer.ErrFetchFailure, "workspace.Fetch", err)
	}

	err = w.repo.Fetch(&git.FetchOptions{RemoteName: remoteName, Auth: auth, Force: true})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return materializer.Wrap(materializer.ErrFetchFailure, "workspace.Fetch", err)
	}

	w.lastFetched = time.Now()
	return nil
}

// Checkout resets the working tree and HEAD to commit (hard reset,
// discarding any working-tree state). If commit isn't present locally
// and allowFetch is true, Checkout fetches once and retries exactly
// once; if still absent it fails with UnknownCommit. A checkout to the
// commit HEAD already points at is a no-op and never fetches. All
// failures leave HEAD unchanged. Caller must hold the lock.
func (w *Workspace) Checkout(commit string, allowFetch bool) (string, error) {
	if head, err := w.currentHead(); err == nil && strings.HasPrefix(head, commit) {
		return head, nil
	}

	hash, resolveErr := w.resolveCommit(commit)
	if resolveErr != nil {
		if !allowFetch {
			return "", materializer.Wrap(materializer.ErrUnknownCommit, "workspace.Checkout", resolveErr)
		}
		if fetchErr := w.Fetch(""); fetchErr != nil {
			return "", fetchErr
		}
		hash, resolveErr = w.resolveCommit(commit)
		if resolveErr != nil {
			return "", materializer.Wrap(materializer.ErrUnknownCommit, "workspace.Checkout", resolveErr)
		}
	}

	prevHead, err := w.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", materializer.Wrap(materializer.ErrInternal, "workspace.Checkout", err)
	}
	if err := w.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, hash)); err != nil {
		return "", materializer.Wrap(materializer.ErrInternal, "workspace.Checkout", err)
	}

	wt, err := w.repo.Worktree()
	if err != nil {
		_ = w.repo.Storer.SetReference(prevHead)
		return "", materializer.Wrap(materializer.ErrInternal, "workspace.Checkout", err)
	}
	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
		_ = w.repo.Storer.SetReference(prevHead)
		return "", materializer.Wrap(materializer.ErrInternal, "workspace.Checkout", err)
	}

	return formatSHA(hash), nil
}

// HeadOf resolves branch to its tip commit. The remote-tracking ref
// refs/remotes/<remote>/<branch> (remote defaults to "origin" when empty)
// is checked first, before falling back to a local branch ref. Caller
// must hold the lock.
// Never fetches.
func (w *Workspace) HeadOf(branch, remote string) (string, error) {
	if remote == "" {
		remote = "origin"
	}

	if ref, err := w.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true); err == nil {
		return formatSHA(ref.Hash()), nil
	}
	if ref, err := w.repo.Reference(plumbing.NewBranchReferenceName(branch), true); err == nil {
		return formatSHA(ref.Hash()), nil
	}

	return "", materializer.Wrap(materializer.ErrUnknownBranch, "workspace.HeadOf",
		fmt.Errorf("branch %q not found", branch))
}

func (w *Workspace) currentHead() (string, error) {
	ref, err := w.repo.Head()
	if err != nil {
		return "", err
	}
	return formatSHA(ref.Hash()), nil
}

// resolveCommit resolves an exact or abbreviated commit identifier to a
// full hash. go-git's revision resolver handles most forms directly; an
// abbreviated prefix that it rejects is resolved by scanning the commit
// object database for a hash-prefix match.
func (w *Workspace) resolveCommit(commit string) (plumbing.Hash, error) {
	if h, err := w.repo.ResolveRevision(plumbing.Revision(commit)); err == nil {
		return *h, nil
	}

	iter, err := w.repo.CommitObjects()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer iter.Close()

	var found *plumbing.Hash
	walkErr := iter.ForEach(func(c *object.Commit) error {
		if strings.HasPrefix(c.Hash.String(), commit) {
			h := c.Hash
			found = &h
			return storer.ErrStop
		}
		return nil
	})
	if walkErr != nil && walkErr != storer.ErrStop {
		return plumbing.ZeroHash, walkErr
	}
	if found == nil {
		return plumbing.ZeroHash, fmt.Errorf("commit %q not found", commit)
	}
	return *found, nil
}

func formatSHA(hash plumbing.Hash) string {
	s := hash.String()
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
