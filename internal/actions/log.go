package actions

import (
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
)

// LogOptions contains options for the log command
type LogOptions struct {
	Limit int
}

// LogAction renders the commit graph.
func LogAction(ctx *runtime.Context, opts LogOptions) error {
	r := ctx.Repo
	g := r.Graph.Snapshot()
	bookmarks, err := r.DB.Bookmarks(ctx)
	if err != nil {
		return err
	}
	wc, err := r.DB.WorkingCopyParent(ctx)
	if err != nil {
		return err
	}
	obsolete, err := r.Log.Obsolete()
	if err != nil {
		return err
	}
	for id := range obsolete {
		if !g.Has(id) {
			delete(obsolete, id)
		}
	}

	if g.Len() == 0 {
		ctx.Splog.Info("No commits yet.")
		return nil
	}
	ctx.Splog.Page(tui.RenderLog(tui.LogView{
		Graph:       g,
		Bookmarks:   bookmarks,
		WorkingCopy: wc,
		Obsolete:    obsolete,
		Limit:       opts.Limit,
	}))
	return nil
}
