// Package refs holds the mutable pointers into the commit graph: bookmarks
// and the working-copy parent.
package refs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store persists bookmarks and the working-copy parent.
type Store interface {
	Bookmarks(ctx context.Context) (map[string]string, error)
	SetBookmark(ctx context.Context, name, id string) error
	DeleteBookmark(ctx context.Context, name string) error
	WorkingCopyParent(ctx context.Context) (string, error)
	SetWorkingCopyParent(ctx context.Context, id string) error
}

// ValidateBookmarkName rejects names that cannot be used as bookmarks.
func ValidateBookmarkName(name string) error {
	if name == "" {
		return fmt.Errorf("bookmark name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n:") {
		return fmt.Errorf("invalid bookmark name %q", name)
	}
	return nil
}

// SortedNames returns bookmark names in sorted order.
func SortedNames(bookmarks map[string]string) []string {
	names := make([]string, 0, len(bookmarks))
	for name := range bookmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Referenced returns the set of commit ids named by a bookmark or the working-copy parent.
func Referenced(ctx context.Context, s Store) (map[string]bool, error) {
	bookmarks, err := s.Bookmarks(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(bookmarks)+1)
	for _, id := range bookmarks {
		out[id] = true
	}
	wc, err := s.WorkingCopyParent(ctx)
	if err != nil {
		return nil, err
	}
	if wc != "" {
		out[wc] = true
	}
	return out, nil
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu        sync.Mutex
	bookmarks map[string]string
	wcParent  string
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{bookmarks: make(map[string]string)}
}

// Bookmarks returns a copy of the bookmark table.
func (s *MemStore) Bookmarks(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.bookmarks))
	for k, v := range s.bookmarks {
		out[k] = v
	}
	return out, nil
}

// SetBookmark creates or moves a bookmark.
func (s *MemStore) SetBookmark(_ context.Context, name, id string) error {
	if err := ValidateBookmarkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[name] = id
	return nil
}

// DeleteBookmark removes a bookmark; deleting a missing one is a no-op.
func (s *MemStore) DeleteBookmark(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookmarks, name)
	return nil
}

// WorkingCopyParent returns the working-copy parent, empty when unset.
func (s *MemStore) WorkingCopyParent(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wcParent, nil
}

// SetWorkingCopyParent moves the working-copy parent.
func (s *MemStore) SetWorkingCopyParent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wcParent = id
	return nil
}
