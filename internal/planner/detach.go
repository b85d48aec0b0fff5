package planner

import (
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
)

// DetachBasePolicy picks the merge base used to re-create a merge whose
// parents sit on different sides of a rewrite.
type DetachBasePolicy interface {
	DetachBase(g *graph.Graph, merge, moving, kept string) (string, error)
}

// NearestCommonAncestor walks the merge's original ancestry breadth-first,
// first parents before second parents, and returns the first commit that is
// an ancestor-or-self of both the moving parent and the kept parent.
type NearestCommonAncestor struct{}

// DetachBase implements DetachBasePolicy.
func (NearestCommonAncestor) DetachBase(g *graph.Graph, merge, moving, kept string) (string, error) {
	movingAnc := g.AncestorSet(moving)
	keptAnc := g.AncestorSet(kept)
	for id := range g.Ancestors(merge) {
		if id == merge {
			continue
		}
		if movingAnc[id] && keptAnc[id] {
			return id, nil
		}
	}
	return "", errors.NewDisconnectedError(moving, kept)
}

// MergeBasePolicy uses the graph's merge base of the two parents.
type MergeBasePolicy struct{}

// DetachBase implements DetachBasePolicy.
func (MergeBasePolicy) DetachBase(g *graph.Graph, _, moving, kept string) (string, error) {
	return g.MergeBase(moving, kept)
}
