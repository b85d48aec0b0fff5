package actions

import (
	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/refs"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
)

// BookmarkListAction prints every bookmark and its target.
func BookmarkListAction(ctx *runtime.Context) error {
	bookmarks, err := ctx.Repo.DB.Bookmarks(ctx)
	if err != nil {
		return err
	}
	if len(bookmarks) == 0 {
		ctx.Splog.Info("No bookmarks.")
		return nil
	}
	for _, name := range refs.SortedNames(bookmarks) {
		ctx.Splog.Info("%s %s", tui.ColorBookmark(name), tui.ColorCommitID(cas.Short(bookmarks[name])))
	}
	return nil
}

// BookmarkSetAction points name at rev, defaulting to the working-copy parent.
func BookmarkSetAction(ctx *runtime.Context, name, rev string) error {
	if rev == "" {
		rev = "@"
	}
	id, err := ctx.Repo.SetBookmark(ctx, name, rev)
	if err != nil {
		return err
	}
	ctx.Splog.Info("Bookmark %s set to %s.", tui.ColorBookmark(name), tui.ColorCommitID(cas.Short(id)))
	return nil
}

// BookmarkDeleteAction removes a bookmark.
func BookmarkDeleteAction(ctx *runtime.Context, name string) error {
	if err := ctx.Repo.DeleteBookmark(ctx, name); err != nil {
		return err
	}
	ctx.Splog.Info("Deleted bookmark %s.", tui.ColorBookmark(name))
	return nil
}

// CheckoutAction moves the working copy to rev.
func CheckoutAction(ctx *runtime.Context, rev string, force bool) error {
	id, err := ctx.Repo.Checkout(ctx, rev, force)
	if err != nil {
		return err
	}
	ctx.Splog.Info("Checked out %s.", tui.ColorCommitID(cas.Short(id)))
	return nil
}
