package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/refs"
)

// DAG builds an in-memory commit graph from named commits and file maps.
type DAG struct {
	T       *testing.T
	Graph   *graph.Graph
	Objects *objstore.MemStore
	Refs    *refs.MemStore
	ids     map[string]string
	names   map[string]string
	clock   int64
}

// NewDAG creates an empty in-memory graph, object store and ref store.
func NewDAG(t *testing.T) *DAG {
	return &DAG{
		T:       t,
		Graph:   graph.New(graph.NewMemBackend()),
		Objects: objstore.NewMemStore(),
		Refs:    refs.NewMemStore(),
		ids:     make(map[string]string),
		names:   make(map[string]string),
	}
}

// Commit creates a draft commit named name with the given files on top of
// the named parents and returns its id.
func (d *DAG) Commit(name string, files map[string]string, parents ...string) string {
	d.T.Helper()
	return d.CommitPhase(name, graph.PhaseDraft, files, parents...)
}

// CommitPhase is Commit with an explicit phase.
func (d *DAG) CommitPhase(name string, phase graph.Phase, files map[string]string, parents ...string) string {
	d.T.Helper()
	ctx := context.Background()

	fs := make(objstore.Files, len(files))
	for p, content := range files {
		fs[p] = []byte(content)
	}
	tree, err := objstore.WriteFiles(ctx, d.Objects, fs)
	require.NoError(d.T, err)

	parentIDs := make([]string, len(parents))
	for i, p := range parents {
		parentIDs[i] = d.ID(p)
	}
	d.clock++
	c, err := graph.NewCommit(parentIDs, tree, "tester", d.clock, name, phase, nil)
	require.NoError(d.T, err)
	require.NoError(d.T, d.Graph.Insert(ctx, c))
	d.ids[name] = c.ID
	d.names[c.ID] = name
	return c.ID
}

// ID returns the id of a named commit. Unknown names are returned unchanged
// so that raw ids can be passed where names are expected.
func (d *DAG) ID(name string) string {
	if id, ok := d.ids[name]; ok {
		return id
	}
	return name
}

// IDs maps names to ids.
func (d *DAG) IDs(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.ID(n)
	}
	return out
}

// Name returns the name a commit was created with, or the id itself.
func (d *DAG) Name(id string) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return id
}

// Names maps ids back to names.
func (d *DAG) Names(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = d.Name(id)
	}
	return out
}

// Bookmark points name at the named commit.
func (d *DAG) Bookmark(bookmark, commit string) {
	d.T.Helper()
	require.NoError(d.T, d.Refs.SetBookmark(context.Background(), bookmark, d.ID(commit)))
}

// Files reads the files of a commit as strings.
func (d *DAG) Files(id string) map[string]string {
	d.T.Helper()
	c, err := d.Graph.Get(id)
	require.NoError(d.T, err)
	files, err := objstore.ReadFiles(context.Background(), d.Objects, c.Tree)
	require.NoError(d.T, err)
	out := make(map[string]string, len(files))
	for p, data := range files {
		out[p] = string(data)
	}
	return out
}
