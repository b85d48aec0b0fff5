package actions

import (
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
)

// UnbundleAction restores the commits saved in a backup bundle.
func UnbundleAction(ctx *runtime.Context, path string) error {
	ids, err := ctx.Repo.Unbundle(ctx, path)
	if err != nil {
		return err
	}
	ctx.Splog.Info("Restored %s from %s.", tui.FormatCount(len(ids), "commit"), tui.ColorDim(path))
	return nil
}

// BackupsAction lists the backup bundles, oldest first.
func BackupsAction(ctx *runtime.Context) error {
	paths, err := ctx.Repo.Backups.List()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		ctx.Splog.Info("No backup bundles.")
		return nil
	}
	for _, p := range paths {
		ctx.Splog.Info("%s", p)
	}
	return nil
}
