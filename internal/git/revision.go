package git

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository is returned when no repository contains the directory.
var ErrNotRepository = stderrors.New("not a git repository")

// Revision identifies the checked-out commit.
type Revision struct {
	Hash       string    `json:"hash"`
	Branch     string    `json:"branch,omitempty"` // empty on a detached HEAD
	CommitTime time.Time `json:"commit_time"`
	Dirty      bool      `json:"dirty"` // worktree has uncommitted changes
}

// Short returns the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Hash) > 12 {
		return r.Hash[:12]
	}
	return r.Hash
}

func (r Revision) String() string {
	s := r.Short()
	if r.Branch != "" {
		s = r.Branch + "@" + s
	}
	if r.Dirty {
		s += "+dirty"
	}
	return s
}

// ReadRevision finds the repository containing dir (searching parent
// directories) and reports its HEAD.
func ReadRevision(dir string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return Revision{}, ErrNotRepository
		}
		return Revision{}, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return Revision{}, fmt.Errorf("repository has no commits: %w", err)
		}
		return Revision{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	rev := Revision{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Revision{}, fmt.Errorf("read HEAD commit: %w", err)
	}
	rev.CommitTime = commit.Committer.When

	wt, err := repo.Worktree()
	if err == nil {
		if status, serr := wt.Status(); serr == nil {
			rev.Dirty = !status.IsClean()
		}
	}
	return rev, nil
}
