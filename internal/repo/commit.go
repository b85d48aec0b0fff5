package repo

import (
	"context"
	"fmt"
	"strings"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/merge"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/refs"
)

// CommitOptions configure Commit.
type CommitOptions struct {
	Message string
	// Phase defaults to draft.
	Phase graph.Phase
	// Bookmark, when set, is pointed at the new commit.
	Bookmark   string
	AllowEmpty bool
}

// ResolveRev turns a revision into a commit id. Accepted forms are "@" (the
// working-copy parent), a bookmark name, or a unique id prefix.
func (r *Repo) ResolveRev(ctx context.Context, rev string) (string, error) {
	if rev == "@" || rev == "." {
		wc, err := r.DB.WorkingCopyParent(ctx)
		if err != nil {
			return "", err
		}
		if wc == "" {
			return "", fmt.Errorf("working copy has no parent commit")
		}
		return wc, nil
	}
	bookmarks, err := r.DB.Bookmarks(ctx)
	if err != nil {
		return "", err
	}
	if id, ok := bookmarks[rev]; ok {
		return id, nil
	}
	return r.Graph.Resolve(rev)
}

// ResolveRevs resolves each revision in order.
func (r *Repo) ResolveRevs(ctx context.Context, revs []string) ([]string, error) {
	out := make([]string, 0, len(revs))
	for _, rev := range revs {
		id, err := r.ResolveRev(ctx, rev)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// requireIdle refuses history edits while a rebase is in progress.
func (r *Repo) requireIdle() error {
	st, err := r.States.Load()
	if err != nil {
		return err
	}
	if st != nil {
		return errors.NewInProgressError("run 'graft rebase --continue' or 'graft rebase --abort'")
	}
	return nil
}

// Changes lists working-copy paths that differ from the working-copy parent.
func (r *Repo) Changes(ctx context.Context) ([]string, error) {
	parent, err := r.parentFiles(ctx)
	if err != nil {
		return nil, err
	}
	current, err := r.WorkCopy.ReadAll()
	if err != nil {
		return nil, err
	}
	return merge.ChangedPaths(parent, current), nil
}

func (r *Repo) parentFiles(ctx context.Context) (objstore.Files, error) {
	wc, err := r.DB.WorkingCopyParent(ctx)
	if err != nil {
		return nil, err
	}
	return r.commitFiles(ctx, wc)
}

func (r *Repo) commitFiles(ctx context.Context, id string) (objstore.Files, error) {
	if id == "" {
		return objstore.Files{}, nil
	}
	c, err := r.Graph.Get(id)
	if err != nil {
		return nil, err
	}
	return objstore.ReadFiles(ctx, r.Objects, c.Tree)
}

// Commit snapshots the working copy into a new commit on top of the
// working-copy parent and makes it the new working-copy parent.
func (r *Repo) Commit(ctx context.Context, opts CommitOptions) (*graph.Commit, error) {
	if err := r.requireIdle(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Message) == "" {
		return nil, fmt.Errorf("empty commit message")
	}
	if opts.Bookmark != "" {
		if err := refs.ValidateBookmarkName(opts.Bookmark); err != nil {
			return nil, err
		}
	}

	wc, err := r.DB.WorkingCopyParent(ctx)
	if err != nil {
		return nil, err
	}
	parent, err := r.commitFiles(ctx, wc)
	if err != nil {
		return nil, err
	}
	files, err := r.WorkCopy.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(merge.ChangedPaths(parent, files)) == 0 && !opts.AllowEmpty {
		return nil, fmt.Errorf("nothing to commit")
	}

	tree, err := objstore.WriteFiles(ctx, r.Objects, files)
	if err != nil {
		return nil, err
	}
	var parents []string
	if wc != "" {
		parents = []string{wc}
	}
	c, err := graph.NewCommit(parents, tree, r.Config.UserName(), cas.NowMs(), opts.Message, opts.Phase, nil)
	if err != nil {
		return nil, err
	}
	if err := r.Graph.Insert(ctx, c); err != nil {
		return nil, err
	}
	if err := r.DB.SetWorkingCopyParent(ctx, c.ID); err != nil {
		return nil, err
	}
	if opts.Bookmark != "" {
		if err := r.DB.SetBookmark(ctx, opts.Bookmark, c.ID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Checkout moves the working-copy parent to rev and rewrites the working copy.
// Uncommitted changes are refused unless force is set.
func (r *Repo) Checkout(ctx context.Context, rev string, force bool) (string, error) {
	if err := r.requireIdle(); err != nil {
		return "", err
	}
	id, err := r.ResolveRev(ctx, rev)
	if err != nil {
		return "", err
	}
	if !force {
		changed, err := r.Changes(ctx)
		if err != nil {
			return "", err
		}
		if len(changed) > 0 {
			return "", fmt.Errorf("working copy has uncommitted changes (%d file(s)); commit them or pass --force", len(changed))
		}
	}
	files, err := r.commitFiles(ctx, id)
	if err != nil {
		return "", err
	}
	if err := r.WorkCopy.Checkout(files); err != nil {
		return "", err
	}
	return id, r.DB.SetWorkingCopyParent(ctx, id)
}

// SetBookmark points name at rev.
func (r *Repo) SetBookmark(ctx context.Context, name, rev string) (string, error) {
	if err := refs.ValidateBookmarkName(name); err != nil {
		return "", err
	}
	id, err := r.ResolveRev(ctx, rev)
	if err != nil {
		return "", err
	}
	return id, r.DB.SetBookmark(ctx, name, id)
}

// DeleteBookmark removes name; it is an error if it does not exist.
func (r *Repo) DeleteBookmark(ctx context.Context, name string) error {
	bookmarks, err := r.DB.Bookmarks(ctx)
	if err != nil {
		return err
	}
	if _, ok := bookmarks[name]; !ok {
		return fmt.Errorf("bookmark %q does not exist", name)
	}
	return r.DB.DeleteBookmark(ctx, name)
}
