package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"graft.dev/graft/internal/actions"
	"graft.dev/graft/internal/config"
	"graft.dev/graft/internal/repo"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get and set repository configuration",
		Long: `Get and set repository configuration values stored in .graft/config.yaml.

Keys: ` + strings.Join(config.Keys, ", ") + `

Examples:
  graft config get merge.style
  graft config set merge.style extended
  graft config set merge.wholeFile "*.png,*.lock"`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withRoot(actions.ConfigListAction)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "get <key>",
		Short:     "Get a configuration value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys,
		RunE: func(_ *cobra.Command, args []string) error {
			return withRoot(func(splog *tui.Splog, root string) error {
				return actions.ConfigGetAction(splog, root, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys,
		RunE: func(_ *cobra.Command, args []string) error {
			return withRoot(func(splog *tui.Splog, root string) error {
				return actions.ConfigSetAction(splog, root, args[0], args[1])
			})
		},
	})

	return cmd
}

// withRoot finds the repository without taking its lock.
func withRoot(fn func(splog *tui.Splog, root string) error) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	root, err := repo.Find(wd)
	if err != nil {
		return err
	}
	splog := runtime.NewSplog()
	defer func() { _ = splog.Close() }()
	return fn(splog, root)
}
