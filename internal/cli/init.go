package cli

import (
	"os"

	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/runtime"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a graft repository",
		Long:  "Creates the .graft metadata directory in dir, or the current directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				root = args[0]
			}
			splog := runtime.NewSplog()
			defer func() { _ = splog.Close() }()
			return actions.InitAction(cmd.Context(), splog, root)
		},
	}
	return cmd
}
