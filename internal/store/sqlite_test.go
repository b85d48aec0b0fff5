package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/refs"
)

var (
	_ graph.Backend = (*DB)(nil)
	_ refs.Store    = (*DB)(nil)
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestCommits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persists commits across reopen", func(t *testing.T) {
		t.Parallel()
		db, path := openTestDB(t)
		g := graph.New(db)
		root, err := graph.NewCommit(nil, "tree", "me", 1, "root", graph.PhasePublic, nil)
		require.NoError(t, err)
		child, err := graph.NewCommit([]string{root.ID}, "tree", "me", 2, "child", graph.PhaseDraft, map[string]string{"k": "v"})
		require.NoError(t, err)
		require.NoError(t, g.Insert(ctx, root, child))
		require.NoError(t, db.Close())

		reopened, err := Open(path)
		require.NoError(t, err)
		defer func() { _ = reopened.Close() }()
		loaded, err := graph.Load(ctx, reopened)
		require.NoError(t, err)
		require.Equal(t, 2, loaded.Len())
		got, err := loaded.Get(child.ID)
		require.NoError(t, err)
		require.Equal(t, "v", got.Extra["k"])
	})

	t.Run("delete removes rows", func(t *testing.T) {
		t.Parallel()
		db, _ := openTestDB(t)
		c, err := graph.NewCommit(nil, "tree", "me", 1, "root", graph.PhaseDraft, nil)
		require.NoError(t, err)
		require.NoError(t, db.PutCommits(ctx, []*graph.Commit{c, c}))
		require.NoError(t, db.DeleteCommits(ctx, []string{c.ID}))
		all, err := db.LoadCommits(ctx)
		require.NoError(t, err)
		require.Empty(t, all)
	})
}

func TestPointers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, _ := openTestDB(t)

	wc, err := db.WorkingCopyParent(ctx)
	require.NoError(t, err)
	require.Empty(t, wc)

	require.NoError(t, db.SetWorkingCopyParent(ctx, "abc"))
	require.NoError(t, db.SetWorkingCopyParent(ctx, "def"))
	wc, err = db.WorkingCopyParent(ctx)
	require.NoError(t, err)
	require.Equal(t, "def", wc)

	require.NoError(t, db.SetBookmark(ctx, "main", "abc"))
	require.NoError(t, db.SetBookmark(ctx, "main", "def"))
	require.NoError(t, db.SetBookmark(ctx, "topic", "abc"))
	require.NoError(t, db.DeleteBookmark(ctx, "topic"))
	bookmarks, err := db.Bookmarks(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"main": "def"}, bookmarks)
}
