package cli

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
)

func newImportGitCmd() *cobra.Command {
	opts := actions.ImportGitOptions{}

	cmd := &cobra.Command{
		Use:   "import-git <path>",
		Short: "Import history and branches from a git repository",
		Long: `Copies the commits reachable from the git repository's branches into
the graph and creates a bookmark per branch. Importing again only adds
commits that are new.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return common.Run(cmd, func(ctx *runtime.Context) error {
				return actions.ImportGitAction(ctx, opts)
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.Branches, "branch", nil, "Only import these branches")
	cmd.Flags().StringVar(&opts.Phase, "phase", "public", "Phase of imported commits")
	cmd.Flags().BoolVar(&opts.Checkout, "checkout", false, "Check out the imported HEAD")
	return cmd
}
