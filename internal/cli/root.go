// Package cli defines graft's cobra command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "graft",
		Short: "graft rewrites commit history with resumable, conflict-aware rebases",
		Long: `graft keeps a content-addressed commit graph and rewrites it with
rebases that can pause on conflicts, be continued or aborted, and survive
being interrupted. Stripped commits are saved to backup bundles first.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newCommitCmd(),
		newCheckoutCmd(),
		newBookmarkCmd(),
		newLogCmd(),
		newStatusCmd(),
		newRebaseCmd(),
		newResolveCmd(),
		newUnbundleCmd(),
		newBackupsCmd(),
		newImportGitCmd(),
		newConfigCmd(),
		newDebugCmd(),
		newDebugMutationsCmd(),
	)

	return rootCmd
}
