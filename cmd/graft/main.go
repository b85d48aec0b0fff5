package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"graft.dev/graft/internal/cli"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	tui.ConfigureColors(os.Stdout)

	rootCmd := cli.NewRootCmd(version, commit, date)
	err := rootCmd.Execute()
	// Conflicts were already reported with instructions.
	if err != nil && !stderrors.Is(err, errors.ErrMergeConflict) {
		fmt.Fprintln(os.Stderr, tui.ColorRed("error: "+err.Error()))
	}
	os.Exit(cli.ExitCode(err))
}
