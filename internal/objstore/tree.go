package objstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
)

// fetchLimit bounds concurrent object reads.
const fetchLimit = 8

// Tree maps a slash-separated path to the id of its blob.
type Tree map[string]string

// Files maps a slash-separated path to file content.
type Files map[string][]byte

// Paths returns the tree's paths in sorted order.
func (t Tree) Paths() []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Paths returns the file paths in sorted order.
func (f Files) Paths() []string {
	paths := make([]string, 0, len(f))
	for p := range f {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a shallow copy of f.
func (f Files) Clone() Files {
	out := make(Files, len(f))
	for p, data := range f {
		out[p] = data
	}
	return out
}

// EncodeTree serializes a tree canonically.
func EncodeTree(t Tree) ([]byte, error) {
	if t == nil {
		t = Tree{}
	}
	return cas.CanonicalJSON(map[string]string(t))
}

// WriteTree stores a tree object and returns its id.
func WriteTree(ctx context.Context, s Store, t Tree) (string, error) {
	data, err := EncodeTree(t)
	if err != nil {
		return "", fmt.Errorf("encode tree: %w", err)
	}
	return s.Put(ctx, data)
}

// ReadTree loads a tree object.
func ReadTree(ctx context.Context, s Store, id string) (Tree, error) {
	data, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.NewIntegrityError("tree "+cas.Short(id), err)
	}
	if t == nil {
		t = Tree{}
	}
	return t, nil
}

// WriteFiles stores every blob plus the tree referencing them and returns the tree id.
func WriteFiles(ctx context.Context, s Store, files Files) (string, error) {
	tree := make(Tree, len(files))
	for _, p := range files.Paths() {
		id, err := s.Put(ctx, files[p])
		if err != nil {
			return "", fmt.Errorf("write blob %s: %w", p, err)
		}
		tree[p] = id
	}
	return WriteTree(ctx, s, tree)
}

// ReadFiles loads a tree and all of its blobs, fetching blobs concurrently.
func ReadFiles(ctx context.Context, s Store, treeID string) (Files, error) {
	tree, err := ReadTree(ctx, s, treeID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	files := make(Files, len(tree))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for path, blobID := range tree {
		g.Go(func() error {
			data, err := s.Get(gctx, blobID)
			if err != nil {
				return fmt.Errorf("read blob %s: %w", path, err)
			}
			mu.Lock()
			files[path] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// EmptyTreeID returns the id of the tree with no entries.
func EmptyTreeID() string {
	data, _ := EncodeTree(Tree{})
	return cas.Sum(data)
}
