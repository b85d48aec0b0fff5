package graph

import (
	"context"
	"sort"
	"sync"
)

// Backend persists commits. Implementations must make PutCommits idempotent.
type Backend interface {
	LoadCommits(ctx context.Context) ([]*Commit, error)
	PutCommits(ctx context.Context, commits []*Commit) error
	DeleteCommits(ctx context.Context, ids []string) error
}

// MemBackend is an in-memory Backend.
type MemBackend struct {
	mu      sync.Mutex
	commits map[string]*Commit
}

// NewMemBackend creates an empty MemBackend.
func NewMemBackend() *MemBackend {
	return &MemBackend{commits: make(map[string]*Commit)}
}

// LoadCommits returns every stored commit.
func (b *MemBackend) LoadCommits(_ context.Context) ([]*Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Commit, 0, len(b.commits))
	for _, c := range b.commits {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutCommits stores commits, ignoring ones already present.
func (b *MemBackend) PutCommits(_ context.Context, commits []*Commit) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range commits {
		if _, ok := b.commits[c.ID]; !ok {
			b.commits[c.ID] = c.Clone()
		}
	}
	return nil
}

// DeleteCommits removes commits by id.
func (b *MemBackend) DeleteCommits(_ context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		delete(b.commits, id)
	}
	return nil
}
