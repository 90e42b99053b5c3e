package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, body string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestReadRevisionFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	hash := commitFile(t, repo, dir, "README.md", "hello")

	content := filepath.Join(dir, "content")
	require.NoError(t, os.MkdirAll(content, 0o750))

	rev, err := ReadRevision(content)
	require.NoError(t, err)
	require.Equal(t, hash, rev.Hash)
	require.Equal(t, "master", rev.Branch)
	require.Len(t, rev.Short(), 12)
	require.True(t, rev.CommitTime.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.False(t, rev.Dirty)
	require.Equal(t, "master@"+hash[:12], rev.String())
}

func TestReadRevisionDirty(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, repo, dir, "a.md", "a")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("changed"), 0o600))

	rev, err := ReadRevision(dir)
	require.NoError(t, err)
	require.True(t, rev.Dirty)
}

func TestReadRevisionNotRepository(t *testing.T) {
	_, err := ReadRevision(t.TempDir())
	require.ErrorIs(t, err, ErrNotRepository)
}
