// Package objstore stores immutable content-addressed objects: file blobs and
// the trees that map paths to them.
package objstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/fsutil"
)

// Store is a content-addressed object store. Ids are the BLAKE3 hex digest of
// the uncompressed object bytes.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Has(ctx context.Context, id string) (bool, error)
}

// FileStore keeps objects under dir/xx/rest, zstd-compressed.
type FileStore struct {
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create objects dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &FileStore{dir: dir, enc: enc, dec: dec}, nil
}

func (s *FileStore) path(id string) string {
	if len(id) < 3 {
		return filepath.Join(s.dir, id)
	}
	return filepath.Join(s.dir, id[:2], id[2:])
}

// Put writes data to the store, returning its id.
// If the object already exists, this is a no-op.
func (s *FileStore) Put(_ context.Context, data []byte) (string, error) {
	id := cas.Sum(data)
	path := s.path(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	compressed := s.enc.EncodeAll(data, nil)
	if err := fsutil.SafeWrite(path, compressed, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", cas.Short(id), err)
	}
	return id, nil
}

// Get reads an object by id and verifies its digest.
func (s *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	compressed, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, errors.NewIntegrityError("object "+cas.Short(id), err)
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, errors.NewIntegrityError("object "+cas.Short(id), err)
	}
	if got := cas.Sum(data); got != id {
		return nil, errors.NewIntegrityError("object "+cas.Short(id), fmt.Errorf("digest mismatch: got %s", cas.Short(got)))
	}
	return data, nil
}

// Has checks if an object exists.
func (s *FileStore) Has(_ context.Context, id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Close releases the zstd codecs.
func (s *FileStore) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

// MemStore is an in-memory Store used by tests and scratch repositories.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Put stores a copy of data.
func (s *MemStore) Put(_ context.Context, data []byte) (string, error) {
	id := cas.Sum(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		s.objects[id] = append([]byte(nil), data...)
	}
	return id, nil
}

// Get returns a copy of the stored object.
func (s *MemStore) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[id]
	if !ok {
		return nil, errors.NewIntegrityError("object "+cas.Short(id), os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// Has reports whether id is stored.
func (s *MemStore) Has(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[id]
	return ok, nil
}

// Len returns the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
