package actions

import (
	"fmt"

	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/state"
	"graft.dev/graft/internal/tui"
)

// AbortOptions contains options for aborting a rebase.
type AbortOptions struct {
	Force bool
}

// AbortAction cancels the rebase in progress, restoring bookmarks and the
// working copy to where they were before it started.
func AbortAction(ctx *runtime.Context, opts AbortOptions) error {
	splog := ctx.Splog

	info, err := ctx.Repo.Engine.Status(ctx)
	if err != nil {
		return err
	}
	if !opts.Force && info.Phase == state.PhasePaused && tui.InteractiveAllowed() {
		confirmed, err := tui.PromptConfirm("Abort the rebase? Resolutions made so far will be lost.", false)
		if err != nil {
			return fmt.Errorf("failed to get confirmation: %w", err)
		}
		if !confirmed {
			splog.Info("Abort canceled.")
			return nil
		}
	}

	if err := ctx.Repo.Engine.Abort(ctx); err != nil {
		return err
	}
	splog.Info("Aborted rebase; bookmarks and working copy restored.")
	return nil
}
