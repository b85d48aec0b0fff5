package cli

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
)

func newLogCmd() *cobra.Command {
	opts := actions.LogOptions{}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the commit graph, newest first",
		Long: `Shows every commit in the graph. @ marks the working-copy parent and x
marks commits that were rewritten but kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.LogAction(ctx, opts)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Show at most this many commits")
	return cmd
}
