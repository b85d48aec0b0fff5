// Package backup writes the bundles that make stripping commits reversible.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/fsutil"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/objstore"
)

// DirName is the bundle directory inside the metadata directory.
const DirName = "strip-backup"

// OrphanWarning is reported when some originals must stay in the graph.
const OrphanWarning = "orphaned descendants detected, not stripping"

const (
	bundleVersion = 1
	bundleSuffix  = "-rebase.bundle"
	fetchLimit    = 8
)

// Bundle is a self-contained set of commits plus every tree and blob they reference.
type Bundle struct {
	Version int               `json:"version"`
	Commits []*graph.Commit   `json:"commits"`
	Objects map[string][]byte `json:"objects"`
}

// IDs returns the bundled commit ids in bundle order.
func (b *Bundle) IDs() []string {
	out := make([]string, len(b.Commits))
	for i, c := range b.Commits {
		out[i] = c.ID
	}
	return out
}

// Manager writes and reads bundles under one directory.
type Manager struct {
	dir     string
	objects objstore.Store
}

// NewManager creates a Manager writing to dir and reading objects from objects.
func NewManager(dir string, objects objstore.Store) *Manager {
	return &Manager{dir: dir, objects: objects}
}

// Dir returns the bundle directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Strippable splits originals into commits that may be stripped and commits
// that must stay because something outside the set still refers to them:
// a bookmark or working-copy parent in referenced, or a child outside the set.
// Ancestors of a kept commit inside the set are kept too.
func Strippable(g *graph.Graph, referenced map[string]bool, originals []string) (strip, keep []string) {
	set := make(map[string]bool, len(originals))
	for _, id := range originals {
		if g.Has(id) {
			set[id] = true
		}
	}

	kept := make(map[string]bool)
	var stack []string
	for id := range set {
		external := referenced[id]
		for _, child := range g.Children(id) {
			if !set[child] {
				external = true
			}
		}
		if external {
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !set[id] || kept[id] {
			continue
		}
		kept[id] = true
		parents, _ := g.Parents(id)
		stack = append(stack, parents...)
	}

	for id := range set {
		if kept[id] {
			keep = append(keep, id)
		} else {
			strip = append(strip, id)
		}
	}
	sort.Strings(keep)
	return g.TopoOrder(strip), keep
}

// Name derives the bundle file name from the root commit and a digest of all ids.
func Name(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	digest := cas.Sum([]byte(strings.Join(sorted, "\n")))
	root := ""
	if len(ids) > 0 {
		root = cas.Short(ids[0])
	}
	return fmt.Sprintf("%s-%s%s", root, digest[:8], bundleSuffix)
}

// Build collects commits (in topological order) and all of their objects.
func (m *Manager) Build(ctx context.Context, g *graph.Graph, ids []string) (*Bundle, error) {
	ordered := g.TopoOrder(ids)
	if len(ordered) != len(ids) {
		return nil, fmt.Errorf("bundle: %d of %d commits are not in the graph", len(ids)-len(ordered), len(ids))
	}

	b := &Bundle{Version: bundleVersion, Objects: make(map[string][]byte)}
	trees := make(map[string]bool)
	for _, id := range ordered {
		c, err := g.Get(id)
		if err != nil {
			return nil, err
		}
		b.Commits = append(b.Commits, c)
		trees[c.Tree] = true
	}

	var mu sync.Mutex
	blobs := make(map[string]bool)
	put := func(id string, data []byte) {
		mu.Lock()
		b.Objects[id] = data
		mu.Unlock()
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchLimit)
	for treeID := range trees {
		eg.Go(func() error {
			data, err := m.objects.Get(gctx, treeID)
			if err != nil {
				return fmt.Errorf("bundle tree %s: %w", cas.Short(treeID), err)
			}
			var tree objstore.Tree
			if err := json.Unmarshal(data, &tree); err != nil {
				return errors.NewIntegrityError("tree "+cas.Short(treeID), err)
			}
			put(treeID, data)
			mu.Lock()
			for _, blobID := range tree {
				blobs[blobID] = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	eg, gctx = errgroup.WithContext(ctx)
	eg.SetLimit(fetchLimit)
	for blobID := range blobs {
		eg.Go(func() error {
			data, err := m.objects.Get(gctx, blobID)
			if err != nil {
				return fmt.Errorf("bundle blob %s: %w", cas.Short(blobID), err)
			}
			put(blobID, data)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// Write builds a bundle of ids and durably stores it. It returns the bundle path.
func (m *Manager) Write(ctx context.Context, g *graph.Graph, ids []string) (string, error) {
	b, err := m.Build(ctx, g, ids)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return "", fmt.Errorf("creating zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(raw, nil)
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("closing zstd encoder: %w", err)
	}

	path := filepath.Join(m.dir, Name(b.IDs()))
	if err := fsutil.SafeWrite(path, compressed, 0o644); err != nil {
		return "", fmt.Errorf("write bundle: %w", err)
	}
	return path, nil
}

// Read decodes a bundle and verifies every commit hash and object hash, and
// that every referenced object is present.
func Read(path string) (*Bundle, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIntegrityError("bundle "+filepath.Base(path), err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, errors.NewIntegrityError("bundle "+filepath.Base(path), err)
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.NewIntegrityError("bundle "+filepath.Base(path), err)
	}
	if err := b.Verify(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Verify checks hashes and completeness.
func (b *Bundle) Verify() error {
	if b.Version != bundleVersion {
		return errors.NewIntegrityError("bundle", fmt.Errorf("unsupported version %d", b.Version))
	}
	for id, data := range b.Objects {
		if got := cas.Sum(data); got != id {
			return errors.NewIntegrityError("bundle object "+cas.Short(id), fmt.Errorf("hashes to %s", cas.Short(got)))
		}
	}
	for _, c := range b.Commits {
		if err := c.Verify(); err != nil {
			return err
		}
		data, ok := b.Objects[c.Tree]
		if !ok {
			return errors.NewIntegrityError("bundle commit "+c.ShortID(), fmt.Errorf("tree %s missing", cas.Short(c.Tree)))
		}
		var tree objstore.Tree
		if err := json.Unmarshal(data, &tree); err != nil {
			return errors.NewIntegrityError("bundle tree "+cas.Short(c.Tree), err)
		}
		for p, blobID := range tree {
			if _, ok := b.Objects[blobID]; !ok {
				return errors.NewIntegrityError("bundle commit "+c.ShortID(), fmt.Errorf("blob for %s missing", p))
			}
		}
	}
	return nil
}

// Restore stores the bundle's objects and inserts its commits. Parents outside
// the bundle must already be in the graph.
func Restore(ctx context.Context, b *Bundle, g *graph.Graph, objects objstore.Store) error {
	ids := make([]string, 0, len(b.Objects))
	for id := range b.Objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		got, err := objects.Put(ctx, b.Objects[id])
		if err != nil {
			return fmt.Errorf("restore object %s: %w", cas.Short(id), err)
		}
		if got != id {
			return errors.NewIntegrityError("bundle object "+cas.Short(id), fmt.Errorf("stored as %s", cas.Short(got)))
		}
	}
	if err := g.Insert(ctx, b.Commits...); err != nil {
		return fmt.Errorf("restore commits: %w", err)
	}
	return nil
}

// List returns bundle paths in the directory, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), bundleSuffix) {
			out = append(out, filepath.Join(m.dir, e.Name()))
		}
	}
	return out, nil
}
