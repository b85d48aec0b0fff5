package actions

import (
	"fmt"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/merge"
	"graft.dev/graft/internal/tui"
)

// PrintConflictStatus displays conflict information and instructions to the user
func PrintConflictStatus(splog *tui.Splog, commit string, conflicts []merge.Conflict) {
	splog.Info("%s", tui.ColorRed(fmt.Sprintf("Hit conflict rebasing %s", cas.Short(commit))))
	splog.Newline()

	splog.Info("%s", tui.ColorYellow("Unresolved files:"))
	for _, c := range conflicts {
		splog.Info("  %s %s", tui.ColorRed(c.Path), tui.ColorDim("("+string(c.Kind)+")"))
	}
	splog.Newline()

	splog.Info("%s", tui.ColorYellow("To fix and continue:"))
	splog.Info("(1) resolve the listed files in the working copy")
	splog.Info("(2) mark them as resolved with %s", tui.ColorCyan("graft resolve --mark"))
	splog.Info("(3) run %s", tui.ColorCyan("graft rebase --continue"))
	splog.Info("It's safe to cancel with %s.", tui.ColorCyan("graft rebase --abort"))
}
