package actions

import (
	"fmt"

	"graft.dev/graft/internal/engine"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/merge"
	"graft.dev/graft/internal/planner"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
)

// RebaseOptions contains options for the rebase command. Exactly one of
// Revs, Sources and Bases must be set.
type RebaseOptions struct {
	Revs    []string
	Sources []string
	Bases   []string
	Dest    string
	// Keep and MergeStyle override the repository config when set.
	Keep       *bool
	NoBackup   bool
	MergeStyle string
	Force      bool
}

// RebaseAction plans and runs a rebase. A conflict is reported and returned
// as a ConflictError.
func RebaseAction(ctx *runtime.Context, opts RebaseOptions) (*engine.Result, error) {
	r := ctx.Repo
	dest, err := r.ResolveRev(ctx, opts.Dest)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	revs, err := r.ResolveRevs(ctx, opts.Revs)
	if err != nil {
		return nil, err
	}
	sources, err := r.ResolveRevs(ctx, opts.Sources)
	if err != nil {
		return nil, err
	}
	bases, err := r.ResolveRevs(ctx, opts.Bases)
	if err != nil {
		return nil, err
	}

	keep := r.Config.KeepOriginals()
	if opts.Keep != nil {
		keep = *opts.Keep
	}
	style := opts.MergeStyle
	if style == "" {
		style = r.Config.MergeStyle()
	}
	if style != string(merge.StyleDefault) && style != string(merge.StyleExtended) {
		return nil, fmt.Errorf("unknown merge style %q (want default or extended)", style)
	}

	res, err := r.Engine.Rebase(ctx, engine.RebaseOptions{
		Request:    planner.Request{Revs: revs, Sources: sources, Bases: bases, Dest: dest},
		Keep:       keep,
		NoBackup:   opts.NoBackup || !r.Config.BackupEnabled(),
		MergeStyle: merge.Style(style),
		WholeFile:  r.Config.WholeFilePatterns(),
		Force:      opts.Force,
	})
	if err != nil {
		return nil, err
	}
	return res, reportResult(ctx, res)
}

// reportResult prints the outcome. A paused result becomes a ConflictError.
func reportResult(ctx *runtime.Context, res *engine.Result) error {
	splog := ctx.Splog
	if res.Status == engine.StatusPaused {
		PrintConflictStatus(splog, res.Commit, res.Conflicts)
		paths := make([]string, len(res.Conflicts))
		for i, c := range res.Conflicts {
			paths[i] = c.Path
		}
		return errors.NewConflictError(res.Commit, paths)
	}

	rewritten, skipped := 0, 0
	for _, entry := range res.Mapping {
		if entry.Skipped {
			skipped++
		} else {
			rewritten++
		}
	}
	splog.Info("Rebased %s.", tui.FormatCount(rewritten, "commit"))
	if skipped > 0 {
		splog.Info("Skipped %s that became empty.", tui.FormatCount(skipped, "commit"))
	}
	for _, w := range res.Warnings {
		splog.Warn("%s", w)
	}
	if res.BackupPath != "" {
		splog.Info("Saved backup bundle to %s", tui.ColorDim(res.BackupPath))
	}
	return nil
}
