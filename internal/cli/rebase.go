package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/cli/common"
	"graft.dev/graft/internal/runtime"
)

type rebaseFlags struct {
	sources    []string
	revs       []string
	bases      []string
	dest       string
	keep       bool
	noBackup   bool
	mergeStyle string
	force      bool
	cont       bool
	abort      bool
}

func newRebaseCmd() *cobra.Command {
	f := &rebaseFlags{}

	cmd := &cobra.Command{
		Use:   "rebase",
		Short: "Move commits onto a new destination",
		Long: `Moves commits onto the destination given with -d.

  -s REV  move REV and all of its descendants
  -r REV  move exactly the listed commits
  -b REV  move the branch containing REV: everything since its merge base with -d

A rebase that hits conflicts pauses with markers in the working copy. Fix
the files, mark them with 'graft resolve --mark', then run
'graft rebase --continue'. 'graft rebase --abort' restores every bookmark
and the working copy to where they were.

Rewritten commits that nothing else references are removed, after being
saved to a backup bundle under .graft/strip-backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			return common.Run(cmd, func(ctx *runtime.Context) error {
				switch {
				case f.cont:
					_, err := actions.ContinueAction(ctx)
					return err
				case f.abort:
					return actions.AbortAction(ctx, actions.AbortOptions{Force: f.force})
				}
				opts := actions.RebaseOptions{
					Sources:    f.sources,
					Revs:       f.revs,
					Bases:      f.bases,
					Dest:       f.dest,
					NoBackup:   f.noBackup,
					MergeStyle: f.mergeStyle,
					Force:      f.force,
				}
				if cmd.Flags().Changed("keep") {
					opts.Keep = &f.keep
				}
				_, err := actions.RebaseAction(ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().StringArrayVarP(&f.sources, "source", "s", nil, "Rebase this commit and its descendants")
	cmd.Flags().StringArrayVarP(&f.revs, "rev", "r", nil, "Rebase exactly these commits")
	cmd.Flags().StringArrayVarP(&f.bases, "base", "b", nil, "Rebase the branch containing this commit")
	cmd.Flags().StringVarP(&f.dest, "dest", "d", "", "Destination commit")
	cmd.Flags().BoolVar(&f.keep, "keep", false, "Keep the original commits instead of stripping them")
	cmd.Flags().BoolVar(&f.noBackup, "no-backup", false, "Do not write a backup bundle (implies --keep)")
	cmd.Flags().StringVar(&f.mergeStyle, "merge-style", "", "Conflict marker style: default or extended")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Discard uncommitted changes; with --abort, do not prompt")
	cmd.Flags().BoolVar(&f.cont, "continue", false, "Continue a paused or interrupted rebase")
	cmd.Flags().BoolVar(&f.abort, "abort", false, "Abort the rebase in progress")

	_ = cmd.RegisterFlagCompletionFunc("dest", common.CompleteBookmarks)
	_ = cmd.RegisterFlagCompletionFunc("source", common.CompleteBookmarks)
	_ = cmd.RegisterFlagCompletionFunc("base", common.CompleteBookmarks)

	return cmd
}

func (f *rebaseFlags) validate() error {
	modes := 0
	for _, set := range [][]string{f.sources, f.revs, f.bases} {
		if len(set) > 0 {
			modes++
		}
	}
	if f.cont || f.abort {
		if f.cont && f.abort {
			return fmt.Errorf("--continue and --abort cannot be used together")
		}
		if modes > 0 || f.dest != "" {
			return fmt.Errorf("--continue and --abort take no other rebase arguments")
		}
		return nil
	}
	if modes != 1 {
		return fmt.Errorf("exactly one of -s, -r or -b is required")
	}
	if f.dest == "" {
		return fmt.Errorf("a destination is required (-d)")
	}
	return nil
}
