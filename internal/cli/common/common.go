// Package common provides shared helper functions for CLI commands.
package common

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/refs"
	"graft.dev/graft/internal/runtime"
)

// Run opens the repository for the duration of a command's execution function
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) (err error) {
	ctx, err := runtime.GetContext(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ctx.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(ctx)
}

// CompleteBookmarks is a helper for cobra.ValidArgsFunction and RegisterFlagCompletionFunc
// that returns all bookmark names in the repository.
func CompleteBookmarks(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	var names []string
	err := Run(cmd, func(ctx *runtime.Context) error {
		bookmarks, err := ctx.Repo.DB.Bookmarks(ctx)
		if err != nil {
			return err
		}
		names = refs.SortedNames(bookmarks)
		return nil
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
