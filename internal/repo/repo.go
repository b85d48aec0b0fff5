// Package repo opens a graft repository on disk and wires its stores, graph,
// working copy and rebase engine together under the repository lock.
package repo

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"graft.dev/graft/internal/backup"
	"graft.dev/graft/internal/config"
	"graft.dev/graft/internal/engine"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/mutation"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/state"
	"graft.dev/graft/internal/store"
	"graft.dev/graft/internal/workcopy"
)

const (
	dbFile     = "graph.db"
	objectsDir = "objects"
	lockFile   = "lock"
)

// ErrNotRepository is returned when no .graft directory is found.
var ErrNotRepository = stderrors.New("not a graft repository")

// Repo is an open repository. The holder owns the repository lock until Close.
type Repo struct {
	Root     string
	MetaDir  string
	Config   *config.RepoConfig
	DB       *store.DB
	Objects  *objstore.FileStore
	Graph    *graph.Graph
	WorkCopy *workcopy.WorkCopy
	States   *state.Store
	Log      *mutation.Log
	Backups  *backup.Manager
	Engine   *engine.Engine

	lock *flock.Flock
}

// Find walks up from dir to the nearest directory containing .graft.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for cur := abs; ; {
		if info, err := os.Stat(filepath.Join(cur, config.MetaDir)); err == nil && info.IsDir() {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("%w (or any parent up to /): %s", ErrNotRepository, abs)
		}
		cur = parent
	}
}

// IsInitialized reports whether root holds a repository.
func IsInitialized(root string) bool {
	info, err := os.Stat(filepath.Join(root, config.MetaDir))
	return err == nil && info.IsDir()
}

// Init creates the metadata directory and default config, then opens the repository.
func Init(ctx context.Context, root string, logger engine.Logger) (*Repo, error) {
	if IsInitialized(root) {
		return nil, fmt.Errorf("%s is already a graft repository", root)
	}
	meta := filepath.Join(root, config.MetaDir)
	if err := os.MkdirAll(filepath.Join(meta, objectsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", config.MetaDir, err)
	}
	if err := config.SaveRepoConfig(root, &config.RepoConfig{}); err != nil {
		return nil, err
	}
	return Open(ctx, root, logger)
}

// Open takes the repository lock and loads the graph. It fails with
// ErrOperationInProgress when another process holds the lock.
func Open(ctx context.Context, root string, logger engine.Logger) (r *Repo, err error) {
	if !IsInitialized(root) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, root)
	}
	meta := filepath.Join(root, config.MetaDir)

	lock := flock.New(filepath.Join(meta, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring repository lock: %w", err)
	}
	if !locked {
		return nil, errors.NewInProgressError("another graft process holds the repository lock")
	}
	r = &Repo{Root: root, MetaDir: meta, lock: lock}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	if r.Config, err = config.GetRepoConfig(root); err != nil {
		return nil, err
	}
	if r.DB, err = store.Open(filepath.Join(meta, dbFile)); err != nil {
		return nil, err
	}
	if r.Objects, err = objstore.NewFileStore(filepath.Join(meta, objectsDir)); err != nil {
		return nil, err
	}
	if r.Graph, err = graph.Load(ctx, r.DB); err != nil {
		return nil, err
	}

	r.WorkCopy = workcopy.OnDisk(root)
	r.States = state.NewStore(meta)
	r.Log = mutation.NewLog(meta)
	r.Backups = backup.NewManager(filepath.Join(meta, backup.DirName), r.Objects)
	r.Engine = engine.New(engine.Deps{
		Graph:    r.Graph,
		Objects:  r.Objects,
		Refs:     r.DB,
		WorkCopy: r.WorkCopy,
		States:   r.States,
		Log:      r.Log,
		Backups:  r.Backups,
		Logger:   logger,
	})
	return r, nil
}

// Close releases the database, object store and lock.
func (r *Repo) Close() error {
	var errs []error
	if r.Objects != nil {
		errs = append(errs, r.Objects.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.lock != nil {
		errs = append(errs, r.lock.Unlock())
	}
	return stderrors.Join(errs...)
}
