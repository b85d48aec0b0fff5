package actions

import (
	"fmt"

	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/state"
	"graft.dev/graft/internal/tui"
)

// ResolveOptions contains options for the resolve command
type ResolveOptions struct {
	// Paths to mark. Empty marks every conflicted path, or prompts when
	// Interactive is set.
	Paths       []string
	List        bool
	Interactive bool
}

// ResolveAction lists the paused step's conflicts or marks paths resolved.
func ResolveAction(ctx *runtime.Context, opts ResolveOptions) error {
	splog := ctx.Splog
	info, err := ctx.Repo.Engine.Status(ctx)
	if err != nil {
		return err
	}
	if info.Phase != state.PhasePaused {
		return fmt.Errorf("%w: no conflicts to resolve", errors.ErrNoOperationInProgress)
	}

	if opts.List {
		unresolved := make(map[string]bool, len(info.Unresolved))
		for _, p := range info.Unresolved {
			unresolved[p] = true
		}
		for _, c := range info.Conflicts {
			mark := tui.ColorGreen("R")
			if unresolved[c.Path] {
				mark = tui.ColorRed("U")
			}
			splog.Info("%s %s", mark, c.Path)
		}
		return nil
	}

	paths := opts.Paths
	if len(paths) == 0 && opts.Interactive && len(info.Unresolved) > 0 {
		paths, err = tui.PromptSelectPaths("Select files to mark as resolved:", info.Unresolved)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			splog.Info("Nothing selected.")
			return nil
		}
	}

	marked, err := ctx.Repo.Engine.MarkResolved(ctx, paths)
	if err != nil {
		return err
	}
	for _, p := range marked {
		splog.Info("Marked %s as resolved.", tui.ColorGreen(p))
	}

	info, err = ctx.Repo.Engine.Status(ctx)
	if err != nil {
		return err
	}
	if len(info.Unresolved) == 0 {
		splog.Tip("All conflicts resolved. Run %s to proceed.", tui.ColorCyan("graft rebase --continue"))
	}
	return nil
}
