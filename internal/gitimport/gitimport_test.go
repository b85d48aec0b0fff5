package gitimport

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"

	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/refs"
)

type gitFixture struct {
	t    *testing.T
	repo *git.Repository
	fs   billy.Filesystem
	wt   *git.Worktree
	tick int
}

func newGitFixture(t *testing.T) *gitFixture {
	t.Helper()
	fs := memfs.New()
	r, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	wt, err := r.Worktree()
	require.NoError(t, err)
	return &gitFixture{t: t, repo: r, fs: fs, wt: wt}
}

func (f *gitFixture) commit(msg string, files map[string]string) plumbing.Hash {
	f.t.Helper()
	for p, content := range files {
		require.NoError(f.t, util.WriteFile(f.fs, p, []byte(content), 0o644))
		_, err := f.wt.Add(p)
		require.NoError(f.t, err)
	}
	f.tick++
	h, err := f.wt.Commit(msg+"\n", &git.CommitOptions{Author: &object.Signature{
		Name:  "Tester",
		Email: "tester@example.com",
		When:  time.Unix(int64(1_700_000_000+f.tick), 0),
	}})
	require.NoError(f.t, err)
	return h
}

func newTarget() Target {
	return Target{
		Graph:   graph.New(graph.NewMemBackend()),
		Objects: objstore.NewMemStore(),
		Refs:    refs.NewMemStore(),
	}
}

func TestImport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newGitFixture(t)
	c1 := f.commit("first", map[string]string{"a.txt": "one\n"})
	c2 := f.commit("second", map[string]string{"a.txt": "two\n"})
	require.NoError(t, f.wt.Checkout(&git.CheckoutOptions{
		Hash:   c1,
		Branch: plumbing.NewBranchReferenceName("feature"),
		Create: true,
	}))
	c3 := f.commit("feature work", map[string]string{"dir/b.txt": "b\n"})

	dst := newTarget()
	res, err := Import(ctx, f.repo, dst, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Imported)
	require.Len(t, res.Mapping, 3)

	first, err := dst.Graph.Get(res.Mapping[c1.String()])
	require.NoError(t, err)
	require.Empty(t, first.Parents)
	require.Equal(t, graph.PhasePublic, first.Phase)
	require.Equal(t, "first", first.Description)
	require.Equal(t, "Tester <tester@example.com>", first.Author)
	require.Equal(t, c1.String(), first.Extra[ExtraGitCommit])

	third, err := dst.Graph.Get(res.Mapping[c3.String()])
	require.NoError(t, err)
	require.Equal(t, []string{first.ID}, third.Parents)
	files, err := objstore.ReadFiles(ctx, dst.Objects, third.Tree)
	require.NoError(t, err)
	require.Equal(t, "one\n", string(files["a.txt"]))
	require.Equal(t, "b\n", string(files["dir/b.txt"]))

	bookmarks, err := dst.Refs.Bookmarks(ctx)
	require.NoError(t, err)
	require.Equal(t, res.Mapping[c2.String()], bookmarks["master"])
	require.Equal(t, res.Mapping[c3.String()], bookmarks["feature"])
	require.Equal(t, res.Mapping[c3.String()], res.Head)

	t.Run("importing again adds nothing", func(t *testing.T) {
		again, err := Import(ctx, f.repo, dst, Options{})
		require.NoError(t, err)
		require.Zero(t, again.Imported)
		require.Equal(t, res.Mapping, again.Mapping)
	})
}

func TestImportBranches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newGitFixture(t)
	f.commit("first", map[string]string{"a": "a\n"})

	t.Run("unknown branch", func(t *testing.T) {
		_, err := Import(ctx, f.repo, newTarget(), Options{Branches: []string{"nope"}})
		require.ErrorContains(t, err, `branch "nope" does not exist`)
	})

	t.Run("draft phase", func(t *testing.T) {
		dst := newTarget()
		res, err := Import(ctx, f.repo, dst, Options{Branches: []string{"master"}, Phase: graph.PhaseDraft})
		require.NoError(t, err)
		c, err := dst.Graph.Get(res.Bookmarks["master"])
		require.NoError(t, err)
		require.Equal(t, graph.PhaseDraft, c.Phase)
	})
}
