package cli

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
)

func newCheckoutCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:               "checkout <rev>",
		Aliases:           []string{"co"},
		Short:             "Move the working copy to a commit",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: common.CompleteBookmarks,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.CheckoutAction(ctx, args[0], force)
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Discard uncommitted changes")
	return cmd
}
