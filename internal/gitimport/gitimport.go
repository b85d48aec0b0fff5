// Package gitimport copies the history of a git repository into a graft graph.
package gitimport

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/refs"
)

// ExtraGitCommit is the Extra key holding the source git commit hash.
const ExtraGitCommit = "git_commit"

// Options configure an import.
type Options struct {
	// Phase of imported commits; defaults to public.
	Phase graph.Phase
	// Branches limits the import to these branch names; empty imports all.
	Branches []string
}

// Result describes an import.
type Result struct {
	// Mapping is git hash -> graft id for every commit visited.
	Mapping map[string]string
	// Imported counts commits that were not already in the graph.
	Imported  int
	Bookmarks map[string]string
	// Head is the graft id of the git HEAD commit, if HEAD resolved.
	Head string
}

// Target is where imported history goes.
type Target struct {
	Graph   *graph.Graph
	Objects objstore.Store
	Refs    refs.Store
}

// Open opens the git repository containing path.
func Open(path string) (*git.Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	r, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	return r, nil
}

// Import copies every commit reachable from the selected branches, parents
// first, and points a bookmark at each branch head. Importing the same
// history twice yields the same ids and adds nothing.
func Import(ctx context.Context, src *git.Repository, dst Target, opts Options) (*Result, error) {
	if opts.Phase == "" {
		opts.Phase = graph.PhasePublic
	}
	heads, err := branchHeads(src, opts.Branches)
	if err != nil {
		return nil, err
	}

	order, err := topoOrder(src, heads)
	if err != nil {
		return nil, err
	}

	res := &Result{Mapping: make(map[string]string, len(order)), Bookmarks: make(map[string]string)}
	for _, gc := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := convert(ctx, gc, res.Mapping, dst.Objects, opts.Phase)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", gc.Hash.String()[:12], err)
		}
		if !dst.Graph.Has(c.ID) {
			if err := dst.Graph.Insert(ctx, c); err != nil {
				return nil, err
			}
			res.Imported++
		}
		res.Mapping[gc.Hash.String()] = c.ID
	}

	names := make([]string, 0, len(heads))
	for name := range heads {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		id := res.Mapping[heads[name].String()]
		if err := refs.ValidateBookmarkName(name); err != nil {
			continue
		}
		if err := dst.Refs.SetBookmark(ctx, name, id); err != nil {
			return nil, err
		}
		res.Bookmarks[name] = id
	}

	if head, err := src.Head(); err == nil {
		res.Head = res.Mapping[head.Hash().String()]
	}
	return res, nil
}

// branchHeads returns branch name -> head hash for the selected local branches.
func branchHeads(src *git.Repository, only []string) (map[string]plumbing.Hash, error) {
	want := make(map[string]bool, len(only))
	for _, b := range only {
		want[b] = true
	}
	iter, err := src.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}
	heads := make(map[string]plumbing.Hash)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if len(want) == 0 || want[name] {
			heads[name] = ref.Hash()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}
	for b := range want {
		if _, ok := heads[b]; !ok {
			return nil, fmt.Errorf("branch %q does not exist", b)
		}
	}
	return heads, nil
}

// topoOrder lists every commit reachable from heads with parents before children.
func topoOrder(src *git.Repository, heads map[string]plumbing.Hash) ([]*object.Commit, error) {
	starts := make([]plumbing.Hash, 0, len(heads))
	for _, h := range heads {
		starts = append(starts, h)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].String() < starts[j].String() })

	type frame struct {
		commit   *object.Commit
		expanded bool
	}
	var order []*object.Commit
	done := make(map[plumbing.Hash]bool)
	for _, start := range starts {
		c, err := src.CommitObject(start)
		if err != nil {
			return nil, fmt.Errorf("failed to get commit %s: %w", start, err)
		}
		stack := []frame{{commit: c}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if done[top.commit.Hash] {
				stack = stack[:len(stack)-1]
				continue
			}
			if top.expanded {
				done[top.commit.Hash] = true
				order = append(order, top.commit)
				stack = stack[:len(stack)-1]
				continue
			}
			top.expanded = true
			if len(top.commit.ParentHashes) > 2 {
				return nil, fmt.Errorf("commit %s has %d parents; octopus merges are not supported", top.commit.Hash, len(top.commit.ParentHashes))
			}
			current := top.commit
			for i := len(current.ParentHashes) - 1; i >= 0; i-- {
				ph := current.ParentHashes[i]
				if done[ph] {
					continue
				}
				p, err := src.CommitObject(ph)
				if err != nil {
					return nil, fmt.Errorf("failed to get commit %s: %w", ph, err)
				}
				stack = append(stack, frame{commit: p})
			}
		}
	}
	return order, nil
}

func convert(ctx context.Context, gc *object.Commit, mapping map[string]string, objects objstore.Store, phase graph.Phase) (*graph.Commit, error) {
	files, err := readFiles(gc)
	if err != nil {
		return nil, err
	}
	tree, err := objstore.WriteFiles(ctx, objects, files)
	if err != nil {
		return nil, err
	}
	parents := make([]string, 0, len(gc.ParentHashes))
	for _, ph := range gc.ParentHashes {
		id, ok := mapping[ph.String()]
		if !ok {
			return nil, fmt.Errorf("parent %s not imported", ph)
		}
		parents = append(parents, id)
	}
	author := gc.Author.Name
	if gc.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", gc.Author.Name, gc.Author.Email)
	}
	return graph.NewCommit(parents, tree, author, gc.Author.When.UnixMilli(),
		strings.TrimRight(gc.Message, "\n"), phase, map[string]string{ExtraGitCommit: gc.Hash.String()})
}

func readFiles(gc *object.Commit) (objstore.Files, error) {
	iter, err := gc.Files()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	files := objstore.Files{}
	err = iter.ForEach(func(f *object.File) error {
		if f.Mode.IsFile() {
			r, err := f.Reader()
			if err != nil {
				return err
			}
			defer r.Close()
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			files[f.Name] = data
		}
		return nil
	})
	return files, err
}
