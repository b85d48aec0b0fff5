package cli

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
)

func newResolveCmd() *cobra.Command {
	var list, mark bool

	cmd := &cobra.Command{
		Use:   "resolve [paths...]",
		Short: "List or mark conflicted files of a paused rebase",
		Long: `With --list, shows each conflicted file as U (unresolved) or R (resolved).

With --mark, records the working-copy content of the given files as their
resolution. Without paths every conflicted file is marked, or you are asked
to pick when running in a terminal. A file you deleted resolves to a deletion.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.ResolveAction(ctx, actions.ResolveOptions{
					Paths:       args,
					List:        list || !mark,
					Interactive: tui.InteractiveAllowed(),
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List conflicted files (default)")
	cmd.Flags().BoolVarP(&mark, "mark", "m", false, "Mark files as resolved")
	cmd.MarkFlagsMutuallyExclusive("list", "mark")
	return cmd
}
