package actions

import (
	"context"

	"graft.dev/graft/internal/repo"
	"graft.dev/graft/internal/tui"
)

// InitAction creates a repository at root.
func InitAction(ctx context.Context, splog *tui.Splog, root string) error {
	r, err := repo.Init(ctx, root, splog)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	splog.Info("Initialized graft repository in %s", tui.ColorDim(r.MetaDir))
	return nil
}
