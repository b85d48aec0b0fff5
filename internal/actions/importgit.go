package actions

import (
	"graft.dev/graft/internal/gitimport"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
)

// ImportGitOptions contains options for the import-git command
type ImportGitOptions struct {
	Path     string
	Branches []string
	Phase    string
	// Checkout moves the working copy to the imported HEAD.
	Checkout bool
}

// ImportGitAction copies history and branches from a git repository.
func ImportGitAction(ctx *runtime.Context, opts ImportGitOptions) error {
	src, err := gitimport.Open(opts.Path)
	if err != nil {
		return err
	}
	r := ctx.Repo
	res, err := gitimport.Import(ctx, src, gitimport.Target{Graph: r.Graph, Objects: r.Objects, Refs: r.DB}, gitimport.Options{
		Phase:    graph.Phase(opts.Phase),
		Branches: opts.Branches,
	})
	if err != nil {
		return err
	}

	ctx.Splog.Info("Imported %s and %s.", tui.FormatCount(res.Imported, "commit"), tui.FormatCount(len(res.Bookmarks), "bookmark"))
	if opts.Checkout && res.Head != "" {
		return CheckoutAction(ctx, res.Head, false)
	}
	return nil
}
