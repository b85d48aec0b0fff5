package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"graft.dev/graft/internal/engine"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/planner"
)

func writeFile(t *testing.T, r *Repo, p, content string) {
	t.Helper()
	require.NoError(t, r.WorkCopy.Write(p, []byte(content)))
}

func TestInitAndOpen(t *testing.T) {
	t.Parallel()

	t.Run("init creates the metadata directory", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		r, err := Init(context.Background(), root, nil)
		require.NoError(t, err)
		defer r.Close()

		require.DirExists(t, filepath.Join(root, ".graft", "objects"))
		require.FileExists(t, filepath.Join(root, ".graft", "config.yaml"))
		require.FileExists(t, filepath.Join(root, ".graft", "graph.db"))
	})

	t.Run("init twice fails", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		r, err := Init(context.Background(), root, nil)
		require.NoError(t, err)
		require.NoError(t, r.Close())

		_, err = Init(context.Background(), root, nil)
		require.ErrorContains(t, err, "already a graft repository")
	})

	t.Run("a held lock refuses a second open", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		r, err := Init(context.Background(), root, nil)
		require.NoError(t, err)
		defer r.Close()

		_, err = Open(context.Background(), root, nil)
		require.ErrorIs(t, err, errors.ErrOperationInProgress)
	})

	t.Run("find walks up to the repository root", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		r, err := Init(context.Background(), root, nil)
		require.NoError(t, err)
		require.NoError(t, r.Close())

		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		found, err := Find(nested)
		require.NoError(t, err)
		want, err := filepath.EvalSymlinks(root)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(found)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("find outside a repository", func(t *testing.T) {
		t.Parallel()
		_, err := Find(t.TempDir())
		require.ErrorIs(t, err, ErrNotRepository)
	})
}

func TestCommitAndCheckout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	r, err := Init(ctx, root, nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Commit(ctx, CommitOptions{Message: "empty"})
	require.ErrorContains(t, err, "nothing to commit")

	writeFile(t, r, "a.txt", "one\n")
	first, err := r.Commit(ctx, CommitOptions{Message: "first", Bookmark: "main"})
	require.NoError(t, err)
	require.Empty(t, first.Parents)

	writeFile(t, r, "dir/b.txt", "two\n")
	second, err := r.Commit(ctx, CommitOptions{Message: "second"})
	require.NoError(t, err)
	require.Equal(t, []string{first.ID}, second.Parents)

	id, err := r.ResolveRev(ctx, "@")
	require.NoError(t, err)
	require.Equal(t, second.ID, id)
	id, err = r.ResolveRev(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, first.ID, id)
	id, err = r.ResolveRev(ctx, second.ID[:10])
	require.NoError(t, err)
	require.Equal(t, second.ID, id)

	writeFile(t, r, "a.txt", "dirty\n")
	_, err = r.Checkout(ctx, "main", false)
	require.ErrorContains(t, err, "uncommitted changes")

	_, err = r.Checkout(ctx, "main", true)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "one\n", string(data))
	require.NoFileExists(t, filepath.Join(root, "dir", "b.txt"))

	changes, err := r.Changes(ctx)
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestBookmarks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, err := Init(ctx, t.TempDir(), nil)
	require.NoError(t, err)
	defer r.Close()

	writeFile(t, r, "a", "a\n")
	c, err := r.Commit(ctx, CommitOptions{Message: "a"})
	require.NoError(t, err)

	_, err = r.SetBookmark(ctx, "bad name", "@")
	require.Error(t, err)

	id, err := r.SetBookmark(ctx, "feature", "@")
	require.NoError(t, err)
	require.Equal(t, c.ID, id)

	require.NoError(t, r.DeleteBookmark(ctx, "feature"))
	require.ErrorContains(t, r.DeleteBookmark(ctx, "feature"), "does not exist")
}

func TestRebasePersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	r, err := Init(ctx, root, nil)
	require.NoError(t, err)

	writeFile(t, r, "f", "base\n")
	base, err := r.Commit(ctx, CommitOptions{Message: "base", Bookmark: "main"})
	require.NoError(t, err)
	writeFile(t, r, "feature.txt", "feature\n")
	feature, err := r.Commit(ctx, CommitOptions{Message: "feature", Bookmark: "feature"})
	require.NoError(t, err)

	_, err = r.Checkout(ctx, "main", false)
	require.NoError(t, err)
	writeFile(t, r, "f", "base\nmore\n")
	dest, err := r.Commit(ctx, CommitOptions{Message: "more", Bookmark: "main"})
	require.NoError(t, err)
	_, err = r.Checkout(ctx, "feature", false)
	require.NoError(t, err)

	res, err := r.Engine.Rebase(ctx, engine.RebaseOptions{
		Request: planner.Request{Sources: []string{feature.ID}, Dest: dest.ID},
	})
	require.NoError(t, err)
	require.Equal(t, engine.StatusCompleted, res.Status)
	rewritten := res.Mapping[feature.ID].New
	require.NoError(t, r.Close())

	r, err = Open(ctx, root, nil)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Graph.Has(rewritten))
	require.False(t, r.Graph.Has(feature.ID))
	require.True(t, r.Graph.Has(base.ID))
	id, err := r.ResolveRev(ctx, "feature")
	require.NoError(t, err)
	require.Equal(t, rewritten, id)
	data, err := os.ReadFile(filepath.Join(root, "f"))
	require.NoError(t, err)
	require.Equal(t, "base\nmore\n", string(data))

	restored, err := r.Unbundle(ctx, res.BackupPath)
	require.NoError(t, err)
	require.Equal(t, []string{feature.ID}, restored)
	require.True(t, r.Graph.Has(feature.ID))
}
