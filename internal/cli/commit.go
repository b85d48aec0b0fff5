package cli

import (
	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
)

func newCommitCmd() *cobra.Command {
	opts := actions.CommitOptions{}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the working copy as a new commit on top of @",
		Long: `Snapshots every file in the working copy into a new commit whose parent
is the working-copy parent (@), then moves @ to it.

Without -m the message is prompted for, or read from an editor with --edit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return common.Run(cmd, func(ctx *runtime.Context) error {
				_, err := actions.CommitAction(ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "Commit message, or - to read it from stdin")
	cmd.Flags().StringVar(&opts.Phase, "phase", "draft", "Phase of the new commit: public, draft or secret")
	cmd.Flags().StringVarP(&opts.Bookmark, "bookmark", "b", "", "Point this bookmark at the new commit")
	cmd.Flags().BoolVar(&opts.AllowEmpty, "allow-empty", false, "Allow a commit with no changes")
	cmd.Flags().BoolVarP(&opts.Edit, "edit", "e", false, "Write the message in $EDITOR")

	return cmd
}
