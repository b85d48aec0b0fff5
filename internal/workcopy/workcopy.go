// Package workcopy materializes commit trees as files on a billy filesystem.
package workcopy

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"graft.dev/graft/internal/objstore"
)

// MetaDir is the metadata directory that is never treated as working-copy content.
const MetaDir = ".graft"

// WorkCopy is the set of user files next to the metadata directory.
type WorkCopy struct {
	fs billy.Filesystem
}

// New wraps an existing filesystem.
func New(fs billy.Filesystem) *WorkCopy {
	return &WorkCopy{fs: fs}
}

// OnDisk returns a working copy rooted at dir.
func OnDisk(dir string) *WorkCopy {
	return New(osfs.New(dir))
}

// InMemory returns an empty in-memory working copy.
func InMemory() *WorkCopy {
	return New(memfs.New())
}

func ignored(p string) bool {
	return p == MetaDir || strings.HasPrefix(p, MetaDir+"/") || p == ".git" || strings.HasPrefix(p, ".git/")
}

// ReadAll returns every file in the working copy keyed by slash path.
func (w *WorkCopy) ReadAll() (objstore.Files, error) {
	files := make(objstore.Files)
	err := util.Walk(w.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		p = strings.TrimPrefix(path.Clean("/"+p), "/")
		if p == "" {
			return nil
		}
		if ignored(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		data, err := util.ReadFile(w.fs, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files[p] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk working copy: %w", err)
	}
	return files, nil
}

// Read returns one file; ok is false when it does not exist.
func (w *WorkCopy) Read(p string) (data []byte, ok bool, err error) {
	data, err = util.ReadFile(w.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Write creates or replaces a file, creating parent directories.
func (w *WorkCopy) Write(p string, data []byte) error {
	if dir := path.Dir(p); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return util.WriteFile(w.fs, p, data, 0o644)
}

// Remove deletes a file and any directories it leaves empty.
func (w *WorkCopy) Remove(p string) error {
	if err := w.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		entries, err := w.fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		_ = w.fs.Remove(dir)
	}
	return nil
}

// Checkout makes the working copy hold exactly files.
func (w *WorkCopy) Checkout(files objstore.Files) error {
	current, err := w.ReadAll()
	if err != nil {
		return err
	}
	stale := make([]string, 0)
	for p := range current {
		if _, keep := files[p]; !keep {
			stale = append(stale, p)
		}
	}
	sort.Strings(stale)
	for _, p := range stale {
		if err := w.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	for _, p := range files.Paths() {
		if old, ok := current[p]; ok && string(old) == string(files[p]) {
			continue
		}
		if err := w.Write(p, files[p]); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}
