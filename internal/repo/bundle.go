package repo

import (
	"context"

	"graft.dev/graft/internal/backup"
)

// Unbundle restores the commits and objects of a strip backup. Commits that
// are already present are left alone.
func (r *Repo) Unbundle(ctx context.Context, path string) ([]string, error) {
	if err := r.requireIdle(); err != nil {
		return nil, err
	}
	b, err := backup.Read(path)
	if err != nil {
		return nil, err
	}
	if err := backup.Restore(ctx, b, r.Graph, r.Objects); err != nil {
		return nil, err
	}
	return b.IDs(), nil
}
