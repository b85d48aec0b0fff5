package graph

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
)

// Graph is an arena of immutable commits with a children index.
// It is safe for concurrent use; mutations go through the backend first.
type Graph struct {
	mu       sync.RWMutex
	commits  map[string]*Commit
	children map[string][]string
	backend  Backend
}

// Load reads every commit from the backend and checks hashes and parent links.
func Load(ctx context.Context, backend Backend) (*Graph, error) {
	commits, err := backend.LoadCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commits: %w", err)
	}
	g := &Graph{
		commits:  make(map[string]*Commit, len(commits)),
		children: make(map[string][]string),
		backend:  backend,
	}
	for _, c := range commits {
		if err := c.Verify(); err != nil {
			return nil, err
		}
		g.commits[c.ID] = c
	}
	for _, c := range commits {
		for _, p := range c.Parents {
			if _, ok := g.commits[p]; !ok {
				return nil, errors.NewIntegrityError("commit "+cas.Short(c.ID), fmt.Errorf("parent %s does not resolve", cas.Short(p)))
			}
			g.addChild(p, c.ID)
		}
	}
	return g, nil
}

// New creates an empty graph on top of backend.
func New(backend Backend) *Graph {
	return &Graph{
		commits:  make(map[string]*Commit),
		children: make(map[string][]string),
		backend:  backend,
	}
}

func (g *Graph) addChild(parent, child string) {
	kids := g.children[parent]
	i := sort.SearchStrings(kids, child)
	if i < len(kids) && kids[i] == child {
		return
	}
	kids = append(kids, "")
	copy(kids[i+1:], kids[i:])
	kids[i] = child
	g.children[parent] = kids
}

// Len returns the number of commits.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.commits)
}

// Has reports whether id is in the graph.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.commits[id]
	return ok
}

// Get returns the commit with the given id.
func (g *Graph) Get(id string) (*Commit, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.commits[id]
	if !ok {
		return nil, errors.NewCommitNotFoundError(id)
	}
	return c, nil
}

// Parents returns the parent ids of id.
func (g *Graph) Parents(id string) ([]string, error) {
	c, err := g.Get(id)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), c.Parents...), nil
}

// Children returns the child ids of id in sorted order.
func (g *Graph) Children(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.children[id]...)
}

// Heads returns commits without children, sorted by id.
func (g *Graph) Heads() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var heads []string
	for id := range g.commits {
		if len(g.children[id]) == 0 {
			heads = append(heads, id)
		}
	}
	sort.Strings(heads)
	return heads
}

// All returns every commit id, sorted.
func (g *Graph) All() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.commits))
	for id := range g.commits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve expands a unique hex prefix to a full commit id.
func (g *Graph) Resolve(prefix string) (string, error) {
	prefix = strings.ToLower(prefix)
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.commits[prefix]; ok {
		return prefix, nil
	}
	if !cas.IsHex(prefix) {
		return "", errors.NewCommitNotFoundError(prefix)
	}
	var match string
	for id := range g.commits {
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("ambiguous commit prefix %q", prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", errors.NewCommitNotFoundError(prefix)
	}
	return match, nil
}

func (g *Graph) parentsOf(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if c, ok := g.commits[id]; ok {
		return c.Parents
	}
	return nil
}

// Ancestors walks id and its ancestors breadth-first, id first and first
// parents before second parents. The sequence is lazy and may be iterated again.
func (g *Graph) Ancestors(id string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !g.Has(id) {
			return
		}
		seen := map[string]bool{id: true}
		queue := []string{id}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if !yield(cur) {
				return
			}
			for _, p := range g.parentsOf(cur) {
				if !seen[p] {
					seen[p] = true
					queue = append(queue, p)
				}
			}
		}
	}
}

// AncestorSet returns id and all of its ancestors.
func (g *Graph) AncestorSet(id string) map[string]bool {
	set := make(map[string]bool)
	for a := range g.Ancestors(id) {
		set[a] = true
	}
	return set
}

// IsAncestor reports whether a is an ancestor of b or equal to it.
func (g *Graph) IsAncestor(a, b string) bool {
	for x := range g.Ancestors(b) {
		if x == a {
			return true
		}
	}
	return false
}

// Depth returns the length of the longest path from a root to id.
func (g *Graph) Depth(id string) int {
	memo := make(map[string]int)
	return g.depth(id, memo)
}

func (g *Graph) depth(id string, memo map[string]int) int {
	if d, ok := memo[id]; ok {
		return d
	}
	// iterative post-order so deep linear histories do not grow the stack
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		if _, ok := memo[cur]; ok {
			stack = stack[:len(stack)-1]
			continue
		}
		ready := true
		best := -1
		for _, p := range g.parentsOf(cur) {
			d, ok := memo[p]
			if !ok {
				ready = false
				stack = append(stack, p)
				continue
			}
			if d > best {
				best = d
			}
		}
		if ready {
			memo[cur] = best + 1
			stack = stack[:len(stack)-1]
		}
	}
	return memo[id]
}

// MergeBase returns the nearest common ancestor of a and b. Candidates are
// common ancestors not reachable from another common ancestor; ties go to the
// greatest depth, then the smallest id.
func (g *Graph) MergeBase(a, b string) (string, error) {
	if !g.Has(a) {
		return "", errors.NewCommitNotFoundError(a)
	}
	if !g.Has(b) {
		return "", errors.NewCommitNotFoundError(b)
	}
	ancA := g.AncestorSet(a)
	var common []string
	for x := range g.Ancestors(b) {
		if ancA[x] {
			common = append(common, x)
		}
	}
	if len(common) == 0 {
		return "", errors.NewDisconnectedError(a, b)
	}

	dominated := make(map[string]bool)
	for _, c := range common {
		stack := append([]string(nil), g.parentsOf(c)...)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if dominated[cur] {
				continue
			}
			dominated[cur] = true
			stack = append(stack, g.parentsOf(cur)...)
		}
	}

	memo := make(map[string]int)
	best, bestDepth := "", -1
	for _, c := range common {
		if dominated[c] {
			continue
		}
		d := g.depth(c, memo)
		if d > bestDepth || (d == bestDepth && c < best) {
			best, bestDepth = c, d
		}
	}
	return best, nil
}

// TopoOrder sorts ids so that parents come before children. Ties are broken
// by timestamp, then id. Unknown ids are ignored.
func (g *Graph) TopoOrder(ids []string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.commits[id]; ok {
			set[id] = true
		}
	}
	indegree := make(map[string]int, len(set))
	for id := range set {
		for _, p := range g.commits[id].Parents {
			if set[p] {
				indegree[id]++
			}
		}
	}

	less := func(x, y string) bool {
		cx, cy := g.commits[x], g.commits[y]
		if cx.Timestamp != cy.Timestamp {
			return cx.Timestamp < cy.Timestamp
		}
		return x < y
	}

	var ready []string
	for id := range set {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	order := make([]string, 0, len(set))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, child := range g.children[cur] {
			if !set[child] {
				continue
			}
			// a merge of two parents in the set is counted once per edge
			for _, p := range g.commits[child].Parents {
				if p == cur {
					indegree[child]--
				}
			}
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	return order
}

// Descendants returns roots and everything reachable from them through child links.
func (g *Graph) Descendants(roots []string) map[string]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]bool)
	stack := make([]string, 0, len(roots))
	for _, r := range roots {
		if _, ok := g.commits[r]; ok {
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[cur] {
			continue
		}
		out[cur] = true
		stack = append(stack, g.children[cur]...)
	}
	return out
}

// Roots returns the members of set with no parent inside set, sorted.
func (g *Graph) Roots(set map[string]bool) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var roots []string
	for id := range set {
		c, ok := g.commits[id]
		if !ok {
			continue
		}
		isRoot := true
		for _, p := range c.Parents {
			if set[p] {
				isRoot = false
				break
			}
		}
		if isRoot {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Insert adds commits, in order, after persisting them. Each commit's hash is
// verified and each parent must already exist or precede it in the batch.
// Inserting a commit that is already present is a no-op.
func (g *Graph) Insert(ctx context.Context, commits ...*Commit) error {
	if g.backend == nil {
		return fmt.Errorf("graph snapshot is read-only")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	batch := make(map[string]bool, len(commits))
	var fresh []*Commit
	for _, c := range commits {
		if err := c.Verify(); err != nil {
			return err
		}
		for _, p := range c.Parents {
			if _, ok := g.commits[p]; !ok && !batch[p] {
				return errors.NewIntegrityError("commit "+cas.Short(c.ID), fmt.Errorf("parent %s does not resolve", cas.Short(p)))
			}
		}
		batch[c.ID] = true
		if _, ok := g.commits[c.ID]; !ok {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := g.backend.PutCommits(ctx, fresh); err != nil {
		return fmt.Errorf("persist commits: %w", err)
	}
	for _, c := range fresh {
		g.commits[c.ID] = c
		for _, p := range c.Parents {
			g.addChild(p, c.ID)
		}
	}
	return nil
}

// Remove deletes commits. It refuses when a commit outside ids still has a
// parent among them.
func (g *Graph) Remove(ctx context.Context, ids []string) error {
	if g.backend == nil {
		return fmt.Errorf("graph snapshot is read-only")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, id := range ids {
		for _, child := range g.children[id] {
			if !set[child] {
				return fmt.Errorf("cannot remove %s: child %s is not being removed", cas.Short(id), cas.Short(child))
			}
		}
	}
	if err := g.backend.DeleteCommits(ctx, ids); err != nil {
		return fmt.Errorf("delete commits: %w", err)
	}
	for _, id := range ids {
		c, ok := g.commits[id]
		if !ok {
			continue
		}
		for _, p := range c.Parents {
			kids := g.children[p]
			for i, k := range kids {
				if k == id {
					g.children[p] = append(kids[:i:i], kids[i+1:]...)
					break
				}
			}
			if len(g.children[p]) == 0 {
				delete(g.children, p)
			}
		}
		delete(g.commits, id)
		delete(g.children, id)
	}
	return nil
}

// Snapshot returns a read-only copy for readers that must not observe
// concurrent mutation.
func (g *Graph) Snapshot() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := &Graph{
		commits:  make(map[string]*Commit, len(g.commits)),
		children: make(map[string][]string, len(g.children)),
	}
	for id, c := range g.commits {
		s.commits[id] = c
	}
	for id, kids := range g.children {
		s.children[id] = append([]string(nil), kids...)
	}
	return s
}
