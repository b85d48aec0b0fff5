// Package scenario combines a Scene with an initialized graft repository and
// a runtime Context to give integration tests a terse API.
package scenario

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/repo"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
	"graft.dev/graft/testhelpers"
)

// Scenario is an initialized repository in a scene directory.
type Scenario struct {
	T       *testing.T
	Scene   *testhelpers.Scene
	Repo    *repo.Repo
	Context *runtime.Context
	// Out collects everything the context's logger printed.
	Out *bytes.Buffer
}

// NewScenario initializes a repository in a new scene.
// NOTE: This function is NOT safe for parallel tests as it uses t.Setenv and NewScene.
func NewScenario(t *testing.T, setup testhelpers.SceneSetup) *Scenario {
	t.Helper()
	scene := testhelpers.NewScene(t, setup)

	out := &bytes.Buffer{}
	splog, err := tui.NewSplogWithConfig(out, "")
	require.NoError(t, err)
	r, err := repo.Init(context.Background(), scene.Dir, splog)
	require.NoError(t, err)

	s := &Scenario{
		T:       t,
		Scene:   scene,
		Repo:    r,
		Context: runtime.NewContext(context.Background(), r, splog),
		Out:     out,
	}
	t.Cleanup(func() { _ = s.Repo.Close() })
	return s
}

// Write sets working-copy files.
func (s *Scenario) Write(files map[string]string) *Scenario {
	s.T.Helper()
	for path, content := range files {
		s.Scene.WriteFile(path, content)
	}
	return s
}

// Commit writes files and commits them as a draft, returning the new id.
func (s *Scenario) Commit(message string, files map[string]string) string {
	s.T.Helper()
	s.Write(files)
	c, err := s.Repo.Commit(s.Context, repo.CommitOptions{Message: message, Phase: graph.PhaseDraft})
	require.NoError(s.T, err)
	return c.ID
}

// Bookmark points name at rev.
func (s *Scenario) Bookmark(name, rev string) *Scenario {
	s.T.Helper()
	_, err := s.Repo.SetBookmark(s.Context, name, rev)
	require.NoError(s.T, err)
	return s
}

// Checkout moves the working copy to rev.
func (s *Scenario) Checkout(rev string) *Scenario {
	s.T.Helper()
	_, err := s.Repo.Checkout(s.Context, rev, false)
	require.NoError(s.T, err)
	return s
}

// BookmarkTarget returns the id a bookmark points at.
func (s *Scenario) BookmarkTarget(name string) string {
	s.T.Helper()
	bookmarks, err := s.Repo.DB.Bookmarks(s.Context)
	require.NoError(s.T, err)
	id, ok := bookmarks[name]
	require.True(s.T, ok, "bookmark %s not found", name)
	return id
}

// Files returns the tree of commit id.
func (s *Scenario) Files(id string) map[string]string {
	s.T.Helper()
	c, err := s.Repo.Graph.Get(id)
	require.NoError(s.T, err)
	files, err := objstore.ReadFiles(s.Context, s.Repo.Objects, c.Tree)
	require.NoError(s.T, err)
	out := make(map[string]string, len(files))
	for p, data := range files {
		out[p] = string(data)
	}
	return out
}

// Parents returns the parents of commit id.
func (s *Scenario) Parents(id string) []string {
	s.T.Helper()
	c, err := s.Repo.Graph.Get(id)
	require.NoError(s.T, err)
	return c.Parents
}

// ExpectOutput asserts that the logger printed substr.
func (s *Scenario) ExpectOutput(substr string) *Scenario {
	s.T.Helper()
	require.Contains(s.T, s.Out.String(), substr)
	return s
}
