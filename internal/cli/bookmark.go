package cli

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
)

func newBookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmark",
		Aliases: []string{"b"},
		Short:   "List, set and delete bookmarks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd, actions.BookmarkListAction)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> [rev]",
		Short: "Point a bookmark at rev (default @)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := ""
			if len(args) == 2 {
				rev = args[1]
			}
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.BookmarkSetAction(ctx, args[0], rev)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:               "delete <name>",
		Aliases:           []string{"rm"},
		Short:             "Delete a bookmark",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: common.CompleteBookmarks,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.BookmarkDeleteAction(ctx, args[0])
			})
		},
	})

	return cmd
}
