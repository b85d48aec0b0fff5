package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"graft.dev/graft/internal/backup"
	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/engine"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/merge"
	"graft.dev/graft/internal/mutation"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/planner"
	"graft.dev/graft/internal/state"
	"graft.dev/graft/internal/workcopy"
	"graft.dev/graft/testhelpers"
)

type harness struct {
	*testhelpers.DAG
	dir    string
	wc     *workcopy.WorkCopy
	states *state.Store
	log    *mutation.Log
	engine *engine.Engine
	tick   int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		DAG: testhelpers.NewDAG(t),
		dir: t.TempDir(),
		wc:  workcopy.InMemory(),
	}
	h.states = state.NewStore(h.dir)
	h.log = mutation.NewLog(h.dir)
	h.engine = h.newEngine(filepath.Join(h.dir, backup.DirName))
	return h
}

// newEngine builds an engine over the harness's stores with its own backup dir.
func (h *harness) newEngine(backupDir string) *engine.Engine {
	return engine.New(engine.Deps{
		Graph:    h.Graph,
		Objects:  h.Objects,
		Refs:     h.Refs,
		WorkCopy: h.wc,
		States:   h.states,
		Log:      h.log,
		Backups:  backup.NewManager(backupDir, h.Objects),
		Clock: func() int64 {
			h.tick++
			return 1_000_000 + h.tick
		},
	})
}

// checkout moves the working-copy parent to a named commit and writes its files.
func (h *harness) checkout(name string) {
	h.T.Helper()
	ctx := context.Background()
	id := h.ID(name)
	require.NoError(h.T, h.Refs.SetWorkingCopyParent(ctx, id))
	c, err := h.Graph.Get(id)
	require.NoError(h.T, err)
	files, err := objstore.ReadFiles(ctx, h.Objects, c.Tree)
	require.NoError(h.T, err)
	require.NoError(h.T, h.wc.Checkout(files))
}

func (h *harness) rebase(req planner.Request) (*engine.Result, error) {
	return h.engine.Rebase(context.Background(), engine.RebaseOptions{Request: req})
}

func (h *harness) bookmark(name string) string {
	h.T.Helper()
	bookmarks, err := h.Refs.Bookmarks(context.Background())
	require.NoError(h.T, err)
	return bookmarks[name]
}

func (h *harness) wcFile(p string) string {
	h.T.Helper()
	data, ok, err := h.wc.Read(p)
	require.NoError(h.T, err)
	require.True(h.T, ok, "missing %s", p)
	return string(data)
}

func (h *harness) logBytes() []byte {
	h.T.Helper()
	data, err := os.ReadFile(h.log.Path())
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(h.T, err)
	return data
}

func (h *harness) stateBytes() []byte {
	h.T.Helper()
	data, err := os.ReadFile(h.states.Path())
	require.NoError(h.T, err)
	return data
}

// conflictGraph builds A{f:"a"} with two children, D{f:"a b"} and X{f:"a b c"}.
func conflictGraph(h *harness) {
	h.Commit("A", map[string]string{"f": "a\n"})
	h.Commit("D", map[string]string{"f": "a\nb\n"}, "A")
	h.Commit("X", map[string]string{"f": "a\nb\nc\n"}, "A")
	h.Bookmark("feature", "X")
	h.checkout("X")
}

func TestIdle(t *testing.T) {
	t.Parallel()

	t.Run("continue with nothing in progress", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		_, err := h.engine.Continue(context.Background(), engine.ContinueOptions{})
		require.ErrorIs(t, err, errors.ErrNoOperationInProgress)
	})

	t.Run("abort with nothing in progress", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		require.ErrorIs(t, h.engine.Abort(context.Background()), errors.ErrNoOperationInProgress)
	})

	t.Run("status reports idle", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		info, err := h.engine.Status(context.Background())
		require.NoError(t, err)
		require.True(t, info.Idle())
	})
}

func TestRebaseClean(t *testing.T) {
	t.Parallel()

	build := func(h *harness) {
		h.Commit("A", map[string]string{"f": "1\n2\n3\n", "g": "g\n"})
		h.Commit("B", map[string]string{"f": "1\n2\nthree\n", "g": "g\n"}, "A")
		h.Commit("C", map[string]string{"f": "1\n2\nthree\n", "g": "g\n", "h": "h\n"}, "B")
		h.Commit("D", map[string]string{"f": "one\n2\n3\n", "g": "g\n"}, "A")
		h.Bookmark("feature", "C")
		h.Bookmark("main", "D")
		h.checkout("C")
	}

	t.Run("moves a stack onto the destination and strips the originals", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		build(h)

		res, err := h.rebase(planner.Request{Sources: h.IDs("B"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)
		require.Len(t, res.Mapping, 2)

		newB := res.Mapping[h.ID("B")].New
		newC := res.Mapping[h.ID("C")].New
		b2, err := h.Graph.Get(newB)
		require.NoError(t, err)
		require.Equal(t, []string{h.ID("D")}, b2.Parents)
		require.Equal(t, h.ID("B"), b2.Extra[graph.ExtraRebaseSource])
		require.Equal(t, "B", b2.Description)

		c2, err := h.Graph.Get(newC)
		require.NoError(t, err)
		require.Equal(t, []string{newB}, c2.Parents)
		require.Equal(t, map[string]string{"f": "one\n2\nthree\n", "g": "g\n", "h": "h\n"}, h.Files(newC))

		require.Equal(t, newC, h.bookmark("feature"))
		require.Equal(t, h.ID("D"), h.bookmark("main"))
		wcParent, err := h.Refs.WorkingCopyParent(context.Background())
		require.NoError(t, err)
		require.Equal(t, newC, wcParent)
		require.Equal(t, "h\n", h.wcFile("h"))

		require.False(t, h.Graph.Has(h.ID("B")))
		require.False(t, h.Graph.Has(h.ID("C")))
		require.ElementsMatch(t, h.IDs("B", "C"), res.Stripped)

		phase, err := h.states.Phase()
		require.NoError(t, err)
		require.Equal(t, state.PhaseIdle, phase)
	})

	t.Run("records one mutation edge per rewritten commit", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		build(h)

		res, err := h.rebase(planner.Request{Sources: h.IDs("B"), Dest: h.ID("D")})
		require.NoError(t, err)

		records, err := h.log.All()
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, r := range records {
			require.Equal(t, mutation.KindRebase, r.Kind)
			require.Equal(t, res.OperationID, r.Operation)
			require.Len(t, r.Predecessors, 1)
			require.Equal(t, res.Mapping[r.Predecessors[0]].New, r.Successor)
		}
	})

	t.Run("writes a readable backup of the stripped commits", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		build(h)

		res, err := h.rebase(planner.Request{Sources: h.IDs("B"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.NotEmpty(t, res.BackupPath)

		b, err := backup.Read(res.BackupPath)
		require.NoError(t, err)
		require.ElementsMatch(t, h.IDs("B", "C"), b.IDs())
	})

	t.Run("keep leaves originals in place", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		build(h)

		res, err := h.engine.Rebase(context.Background(), engine.RebaseOptions{
			Request: planner.Request{Sources: h.IDs("B"), Dest: h.ID("D")},
			Keep:    true,
		})
		require.NoError(t, err)
		require.Empty(t, res.Stripped)
		require.Empty(t, res.BackupPath)
		require.True(t, h.Graph.Has(h.ID("B")))
		require.True(t, h.Graph.Has(h.ID("C")))
	})

	t.Run("no backup keeps originals and writes no bundle", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		build(h)

		res, err := h.engine.Rebase(context.Background(), engine.RebaseOptions{
			Request:  planner.Request{Sources: h.IDs("B"), Dest: h.ID("D")},
			NoBackup: true,
		})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)
		require.Empty(t, res.Stripped)
		require.Empty(t, res.BackupPath)
		require.True(t, h.Graph.Has(h.ID("B")))
		require.True(t, h.Graph.Has(h.ID("C")))
		require.Equal(t, res.Mapping[h.ID("C")].New, h.bookmark("feature"))

		bundles, err := filepath.Glob(filepath.Join(h.dir, backup.DirName, "*"))
		require.NoError(t, err)
		require.Empty(t, bundles)
	})

	t.Run("the same input produces the same commit ids", func(t *testing.T) {
		t.Parallel()
		var results []map[string]state.MappingEntry
		for range 2 {
			h := newHarness(t)
			build(h)
			res, err := h.rebase(planner.Request{Sources: h.IDs("B"), Dest: h.ID("D")})
			require.NoError(t, err)
			results = append(results, res.Mapping)
		}
		require.Equal(t, results[0], results[1])
	})

	t.Run("file content matches a direct three-way merge", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		build(h)

		res, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.NoError(t, err)

		want := merge.Merge3([]byte("1\n2\n3\n"), []byte("one\n2\n3\n"), []byte("1\n2\nthree\n"), merge.Options{})
		require.False(t, want.Conflict)
		require.Equal(t, string(want.Content), h.Files(res.Mapping[h.ID("B")].New)["f"])
	})
}

func TestRebaseSkipsEmptyCommits(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.Commit("A", map[string]string{"f": "a\n"})
	h.Commit("B", map[string]string{"f": "b\n"}, "A")
	h.Commit("D", map[string]string{"f": "b\n"}, "A")
	h.Bookmark("feature", "B")

	res, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
	require.NoError(t, err)
	require.Equal(t, state.MappingEntry{New: h.ID("D"), Skipped: true}, res.Mapping[h.ID("B")])
	require.Equal(t, h.ID("D"), h.bookmark("feature"))

	records, err := h.log.All()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRebaseRejections(t *testing.T) {
	t.Parallel()

	t.Run("destination inside the source set creates no state", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "b\n"}, "A")
		h.Commit("C", map[string]string{"f": "c\n"}, "B")

		_, err := h.rebase(planner.Request{Sources: h.IDs("B"), Dest: h.ID("C")})
		require.ErrorIs(t, err, errors.ErrInvalidPlan)
		st, err := h.states.Load()
		require.NoError(t, err)
		require.Nil(t, st)
	})

	t.Run("dirty working copy is refused unless forced", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "b\n"}, "A")
		h.Commit("D", map[string]string{"f": "a\n", "g": "g\n"}, "A")
		h.checkout("B")
		require.NoError(t, h.wc.Write("scratch", []byte("wip\n")))

		_, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.ErrorContains(t, err, "uncommitted changes")

		res, err := h.engine.Rebase(context.Background(), engine.RebaseOptions{
			Request: planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")},
			Force:   true,
		})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)
	})

	t.Run("second rebase while paused", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		conflictGraph(h)

		res, err := h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusPaused, res.Status)

		_, err = h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.ErrorIs(t, err, errors.ErrOperationInProgress)
	})
}

func TestConflicts(t *testing.T) {
	t.Parallel()

	t.Run("default markers name both sides", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		conflictGraph(h)

		res, err := h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusPaused, res.Status)
		require.Equal(t, h.ID("X"), res.Commit)
		require.Len(t, res.Conflicts, 1)
		require.Equal(t, "f", res.Conflicts[0].Path)
		require.Equal(t, merge.ConflictContent, res.Conflicts[0].Kind)

		require.Equal(t, "a\n"+
			"<<<<<<< dest: "+cas.Short(h.ID("D"))+"\n"+
			"b\n"+
			"=======\n"+
			"b\nc\n"+
			">>>>>>> source: "+cas.Short(h.ID("X"))+"\n", h.wcFile("f"))

		info, err := h.engine.Status(context.Background())
		require.NoError(t, err)
		require.Equal(t, state.PhasePaused, info.Phase)
		require.Equal(t, []string{"f"}, info.Unresolved)
		require.False(t, info.Interrupted)
	})

	t.Run("extended markers include the base", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		conflictGraph(h)

		_, err := h.engine.Rebase(context.Background(), engine.RebaseOptions{
			Request:    planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")},
			MergeStyle: merge.StyleExtended,
		})
		require.NoError(t, err)
		require.Equal(t, "a\n"+
			"<<<<<<< dest: "+cas.Short(h.ID("D"))+"\n"+
			"b\n"+
			"||||||| base\n"+
			"=======\n"+
			"b\nc\n"+
			">>>>>>> source: "+cas.Short(h.ID("X"))+"\n", h.wcFile("f"))
	})

	t.Run("continue without resolutions leaves the state untouched", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		conflictGraph(h)

		_, err := h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.NoError(t, err)
		before := h.stateBytes()

		_, err = h.engine.Continue(context.Background(), engine.ContinueOptions{})
		require.ErrorIs(t, err, errors.ErrUnresolvedConflicts)
		require.Equal(t, before, h.stateBytes())
	})

	t.Run("resolving in the working copy then continuing", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		conflictGraph(h)

		_, err := h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.NoError(t, err)

		_, err = h.engine.MarkResolved(context.Background(), nil)
		require.ErrorContains(t, err, "conflict markers")

		require.NoError(t, h.wc.Write("f", []byte("a\nb\nc\n")))
		marked, err := h.engine.MarkResolved(context.Background(), nil)
		require.NoError(t, err)
		require.Equal(t, []string{"f"}, marked)

		info, err := h.engine.Status(context.Background())
		require.NoError(t, err)
		require.Empty(t, info.Unresolved)

		res, err := h.engine.Continue(context.Background(), engine.ContinueOptions{})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)

		newX := res.Mapping[h.ID("X")].New
		require.Equal(t, map[string]string{"f": "a\nb\nc\n"}, h.Files(newX))
		require.Equal(t, newX, h.bookmark("feature"))
		require.Equal(t, "a\nb\nc\n", h.wcFile("f"))
	})

	t.Run("resolutions passed to continue", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		conflictGraph(h)

		_, err := h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.NoError(t, err)

		res, err := h.engine.Continue(context.Background(), engine.ContinueOptions{
			Resolutions: map[string]state.Resolution{"f": {Deleted: true}},
		})
		require.NoError(t, err)
		require.Empty(t, h.Files(res.Mapping[h.ID("X")].New))
	})

	t.Run("marking a path that is not conflicted fails", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		conflictGraph(h)

		_, err := h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.NoError(t, err)
		_, err = h.engine.MarkResolved(context.Background(), []string{"nope"})
		require.ErrorContains(t, err, "not in conflict")
	})
}

func TestAbort(t *testing.T) {
	t.Parallel()

	t.Run("restores pointers and leaves the mutation log unchanged", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "a\n", "g": "1\n"}, "A")
		h.Commit("D", map[string]string{"f": "a\n", "h": "h\n"}, "A")
		h.Bookmark("main", "D")
		h.Bookmark("side", "B")

		// seed the log with an earlier operation
		_, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.NoError(t, err)
		seeded := h.logBytes()
		require.NotEmpty(t, seeded)

		conflictGraph(h)
		bookmarksBefore, err := h.Refs.Bookmarks(context.Background())
		require.NoError(t, err)
		commitsBefore := h.Graph.Len()

		_, err = h.rebase(planner.Request{Revs: h.IDs("X"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.NoError(t, h.Refs.SetBookmark(context.Background(), "scratch", h.ID("A")))

		require.NoError(t, h.engine.Abort(context.Background()))

		bookmarksAfter, err := h.Refs.Bookmarks(context.Background())
		require.NoError(t, err)
		require.Equal(t, bookmarksBefore, bookmarksAfter)
		wcParent, err := h.Refs.WorkingCopyParent(context.Background())
		require.NoError(t, err)
		require.Equal(t, h.ID("X"), wcParent)
		require.Equal(t, "a\nb\nc\n", h.wcFile("f"))
		require.Equal(t, commitsBefore, h.Graph.Len())
		require.Equal(t, seeded, h.logBytes())

		phase, err := h.states.Phase()
		require.NoError(t, err)
		require.Equal(t, state.PhaseIdle, phase)
	})

	t.Run("refused while completing", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "b\n"}, "A")
		h.Commit("D", map[string]string{"f": "a\n", "g": "g\n"}, "A")

		blockBackups(t, h)
		_, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.Error(t, err)

		err = h.engine.Abort(context.Background())
		require.ErrorIs(t, err, errors.ErrOperationInProgress)
	})
}

// blockBackups makes bundle writes fail by putting a file where the backup
// directory should be.
func blockBackups(t *testing.T, h *harness) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, backup.DirName), []byte("x"), 0o644))
}

func TestResume(t *testing.T) {
	t.Parallel()

	t.Run("an interrupted running operation continues from its cursor", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "b\n"}, "A")
		h.Commit("D", map[string]string{"f": "a\n", "g": "g\n"}, "A")

		plan, err := planner.New(h.Graph, nil).Plan(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.NoError(t, err)
		st := state.New(*plan, state.Options{Backup: true}, state.Snapshot{Bookmarks: map[string]string{}})
		require.NoError(t, h.states.Begin(st))

		info, err := h.engine.Status(context.Background())
		require.NoError(t, err)
		require.True(t, info.Interrupted)

		res, err := h.engine.Continue(context.Background(), engine.ContinueOptions{})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)
		require.Equal(t, map[string]string{"f": "b\n", "g": "g\n"}, h.Files(res.Mapping[h.ID("B")].New))
	})

	t.Run("an interrupted completion finishes without repeating work", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "b\n"}, "A")
		h.Commit("D", map[string]string{"f": "a\n", "g": "g\n"}, "A")
		h.Bookmark("feature", "B")

		blockBackups(t, h)
		_, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.Error(t, err)

		phase, err := h.states.Phase()
		require.NoError(t, err)
		require.Equal(t, state.PhaseCompleting, phase)
		require.True(t, h.Graph.Has(h.ID("B")))

		h.engine = h.newEngine(filepath.Join(h.dir, "backups"))
		res, err := h.engine.Continue(context.Background(), engine.ContinueOptions{})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)
		require.False(t, h.Graph.Has(h.ID("B")))
		require.Equal(t, res.Mapping[h.ID("B")].New, h.bookmark("feature"))

		records, err := h.log.All()
		require.NoError(t, err)
		require.Len(t, records, 1)

		_, err = backup.Read(res.BackupPath)
		require.NoError(t, err)
	})

	t.Run("an unreadable bundle is rewritten before stripping", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "b\n"}, "A")
		h.Commit("D", map[string]string{"f": "a\n", "g": "g\n"}, "A")

		blockBackups(t, h)
		_, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.Error(t, err)

		torn := filepath.Join(h.dir, "torn.bundle")
		require.NoError(t, os.WriteFile(torn, []byte("not a bundle"), 0o644))
		st, err := h.states.Load()
		require.NoError(t, err)
		st.Finalize.Bundle = torn
		require.NoError(t, h.states.Save(st))

		h.engine = h.newEngine(filepath.Join(h.dir, "backups"))
		res, err := h.engine.Continue(context.Background(), engine.ContinueOptions{})
		require.NoError(t, err)
		require.NotEqual(t, torn, res.BackupPath)
		require.NoFileExists(t, torn)

		b, err := backup.Read(res.BackupPath)
		require.NoError(t, err)
		require.Equal(t, h.IDs("B"), b.IDs())
	})
}

func TestStripSafety(t *testing.T) {
	t.Parallel()

	t.Run("an original with a remaining child is kept with a warning", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "b\n"}, "A")
		h.Commit("C", map[string]string{"f": "b\n", "c": "c\n"}, "B")
		h.Commit("D", map[string]string{"f": "a\n", "g": "g\n"}, "A")

		res, err := h.rebase(planner.Request{Revs: h.IDs("B"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)
		require.Contains(t, res.Warnings, backup.OrphanWarning)
		require.True(t, h.Graph.Has(h.ID("B")))
		require.Empty(t, res.Stripped)
	})

	t.Run("a kept original does not stop its unrelated siblings from being stripped", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "a\n"})
		h.Commit("B", map[string]string{"f": "a\n", "b": "b\n"}, "A")
		h.Commit("E", map[string]string{"f": "a\n", "b": "b\n", "e": "e\n"}, "B")
		h.Commit("S", map[string]string{"f": "a\n", "s": "s\n"}, "A")
		h.Commit("D", map[string]string{"f": "a\n", "g": "g\n"}, "A")

		res, err := h.rebase(planner.Request{Revs: h.IDs("B", "S"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)
		require.Contains(t, res.Warnings, backup.OrphanWarning)

		require.True(t, h.Graph.Has(h.ID("B")))
		require.True(t, h.Graph.Has(h.ID("E")))
		require.False(t, h.Graph.Has(h.ID("S")))
		require.Equal(t, h.IDs("S"), res.Stripped)

		b, err := backup.Read(res.BackupPath)
		require.NoError(t, err)
		require.Equal(t, h.IDs("S"), b.IDs())

		require.Equal(t, map[string]string{"f": "a\n", "g": "g\n", "b": "b\n"}, h.Files(res.Mapping[h.ID("B")].New))
		require.Equal(t, map[string]string{"f": "a\n", "g": "g\n", "s": "s\n"}, h.Files(res.Mapping[h.ID("S")].New))
	})
}

func TestMergeRewrite(t *testing.T) {
	t.Parallel()

	t.Run("a deletion made by the kept side survives", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "x\n", "g": "y\n"})
		h.Commit("P", map[string]string{"f": "x2\n", "g": "y\n"}, "A")
		h.Commit("K", map[string]string{"f": "x\n"}, "A")
		h.Commit("M", map[string]string{"f": "x2\n"}, "P", "K")
		h.Commit("D", map[string]string{"f": "x\n", "g": "y\n", "h": "h\n"}, "A")

		res, err := h.rebase(planner.Request{Sources: h.IDs("P"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)

		newM := res.Mapping[h.ID("M")].New
		require.Equal(t, map[string]string{"f": "x2\n", "h": "h\n"}, h.Files(newM))
		m2, err := h.Graph.Get(newM)
		require.NoError(t, err)
		require.Equal(t, []string{res.Mapping[h.ID("P")].New, h.ID("K")}, m2.Parents)
	})
	t.Run("both parents in the set are both rewritten", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "x\n"})
		h.Commit("P", map[string]string{"f": "x\n", "p": "p\n"}, "A")
		h.Commit("K", map[string]string{"f": "x\n", "k": "k\n"}, "A")
		h.Commit("M", map[string]string{"f": "x\n", "p": "p\n", "k": "k\n"}, "P", "K")
		h.Commit("D", map[string]string{"f": "x\n", "d": "d\n"}, "A")

		res, err := h.rebase(planner.Request{Revs: h.IDs("P", "K", "M"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)

		newM := res.Mapping[h.ID("M")].New
		m2, err := h.Graph.Get(newM)
		require.NoError(t, err)
		require.Equal(t, []string{res.Mapping[h.ID("P")].New, res.Mapping[h.ID("K")].New}, m2.Parents)
		require.Equal(t, map[string]string{"f": "x\n", "p": "p\n", "k": "k\n", "d": "d\n"}, h.Files(newM))
	})

	t.Run("a merge moved alone leaves its first parent's changes behind", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "f\n"})
		h.Commit("P", map[string]string{"f": "f\n", "a": "a\n"}, "A")
		h.Commit("K", map[string]string{"f": "f\n", "b": "b\n"}, "A")
		h.Commit("M", map[string]string{"f": "f\n", "a": "a\n", "b": "b\n"}, "P", "K")
		h.Commit("D", map[string]string{"f": "f\n", "d": "d\n"}, "A")

		res, err := h.rebase(planner.Request{Revs: h.IDs("M"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)

		newM := res.Mapping[h.ID("M")].New
		m2, err := h.Graph.Get(newM)
		require.NoError(t, err)
		require.Equal(t, h.IDs("D", "K"), m2.Parents)
		require.Equal(t, map[string]string{"f": "f\n", "b": "b\n", "d": "d\n"}, h.Files(newM))
	})

	t.Run("a kept parent already under the destination is dropped", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.Commit("A", map[string]string{"f": "x\n"})
		h.Commit("K", map[string]string{"f": "x\n", "k": "k\n"}, "A")
		h.Commit("P", map[string]string{"f": "x\n", "p": "p\n"}, "A")
		h.Commit("M", map[string]string{"f": "x\n", "p": "p\n", "k": "k\n", "m": "m\n"}, "P", "K")
		h.Commit("D", map[string]string{"f": "x\n", "k": "k\n", "d": "d\n"}, "K")

		res, err := h.rebase(planner.Request{Sources: h.IDs("P"), Dest: h.ID("D")})
		require.NoError(t, err)
		require.Equal(t, engine.StatusCompleted, res.Status)

		newM := res.Mapping[h.ID("M")].New
		m2, err := h.Graph.Get(newM)
		require.NoError(t, err)
		require.Equal(t, []string{res.Mapping[h.ID("P")].New}, m2.Parents)
		require.Equal(t, map[string]string{"f": "x\n", "k": "k\n", "d": "d\n", "p": "p\n", "m": "m\n"}, h.Files(newM))
	})
}
