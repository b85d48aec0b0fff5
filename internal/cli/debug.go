package cli

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
)

// newDebugCmd creates the debug command
func newDebugCmd() *cobra.Command {
	opts := actions.DebugOptions{}

	cmd := &cobra.Command{
		Use:    "debug",
		Short:  "Dump repository and rebase state as JSON",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.DebugAction(ctx, opts)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Only include this many recent mutation records")
	return cmd
}

func newDebugMutationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debugmutations [rev]",
		Short: "Show recorded rewrites (predecessor -> successor)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := ""
			if len(args) == 1 {
				rev = args[0]
			}
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.DebugMutationsAction(ctx, rev)
			})
		},
	}
}
