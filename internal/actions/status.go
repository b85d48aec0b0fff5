package actions

import (
	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/state"
	"graft.dev/graft/internal/tui"
)

// StatusAction shows the working-copy parent, uncommitted changes and any
// rebase in progress.
func StatusAction(ctx *runtime.Context) error {
	splog := ctx.Splog
	r := ctx.Repo

	wc, err := r.DB.WorkingCopyParent(ctx)
	if err != nil {
		return err
	}
	if wc == "" {
		splog.Info("Working copy parent: %s", tui.ColorDim("(root)"))
	} else {
		c, err := r.Graph.Get(wc)
		if err != nil {
			return err
		}
		splog.Info("Working copy parent: %s %s", tui.ColorCommitID(c.ShortID()), c.Summary())
	}

	info, err := r.Engine.Status(ctx)
	if err != nil {
		return err
	}
	if info.Idle() {
		changed, err := r.Changes(ctx)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			splog.Info("The working copy is clean.")
		} else {
			splog.Info("Working copy changes:")
			for _, p := range changed {
				splog.Info("  %s", tui.ColorYellow(p))
			}
		}
		return nil
	}

	splog.Newline()
	splog.Info("Rebase in progress (%s), step %d of %d.", info.Phase, min(info.Cursor+1, info.Total), info.Total)
	if info.Commit != "" {
		splog.Info("Current commit: %s", tui.ColorCommitID(cas.Short(info.Commit)))
	}
	switch info.Phase {
	case state.PhasePaused:
		PrintConflictStatus(splog, info.Commit, info.Conflicts)
	case state.PhaseCompleting:
		splog.Tip("The rebase was interrupted while finishing. Run %s to complete it.", tui.ColorCyan("graft rebase --continue"))
	default:
		splog.Tip("The rebase was interrupted. Run %s to resume or %s to cancel.",
			tui.ColorCyan("graft rebase --continue"), tui.ColorCyan("graft rebase --abort"))
	}
	return nil
}
