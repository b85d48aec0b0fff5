package cli_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"graft.dev/graft/internal/cli"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/repo"
	"graft.dev/graft/testhelpers"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := cli.NewRootCmd("test", "none", "unknown")
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func bookmarks(t *testing.T, dir string) map[string]string {
	t.Helper()
	r, err := repo.Open(context.Background(), dir, nil)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	b, err := r.DB.Bookmarks(context.Background())
	require.NoError(t, err)
	return b
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0, cli.ExitCode(nil))
	require.Equal(t, 1, cli.ExitCode(errors.NewConflictError("abc", []string{"f"})))
	require.Equal(t, 1, cli.ExitCode(fmt.Errorf("wrapped: %w", errors.NewConflictError("abc", nil))))
	require.Equal(t, 1, cli.ExitCode(fmt.Errorf("%w: f", errors.ErrUnresolvedConflicts)))
	require.Equal(t, 255, cli.ExitCode(errors.ErrNoOperationInProgress))
	require.Equal(t, 255, cli.ExitCode(fmt.Errorf("boom")))
}

func TestRebaseFlags(t *testing.T) {
	testhelpers.NewScene(t, nil)
	require.NoError(t, run(t, "init"))

	require.ErrorContains(t, run(t, "rebase", "-d", "x"), "exactly one of -s, -r or -b")
	require.ErrorContains(t, run(t, "rebase", "-s", "a", "-r", "b", "-d", "x"), "exactly one of -s, -r or -b")
	require.ErrorContains(t, run(t, "rebase", "-s", "a"), "destination is required")
	require.ErrorContains(t, run(t, "rebase", "--continue", "--abort"), "cannot be used together")
	require.ErrorContains(t, run(t, "rebase", "--continue", "-d", "x"), "take no other rebase arguments")

	err := run(t, "rebase", "--continue")
	require.ErrorIs(t, err, errors.ErrNoOperationInProgress)
	require.Equal(t, 255, cli.ExitCode(err))
}

func TestCommandsOutsideRepository(t *testing.T) {
	testhelpers.NewScene(t, nil)
	err := run(t, "log")
	require.ErrorIs(t, err, repo.ErrNotRepository)
	require.ErrorContains(t, err, "graft init")
}

func TestConflictRoundTrip(t *testing.T) {
	scene := testhelpers.NewScene(t, nil)
	require.NoError(t, run(t, "init"))

	scene.WriteFile("f", "a\n")
	require.NoError(t, run(t, "commit", "-m", "A", "-b", "base"))
	scene.WriteFile("f", "a\nb\n")
	require.NoError(t, run(t, "commit", "-m", "D", "-b", "main"))
	require.NoError(t, run(t, "checkout", "base"))
	require.Equal(t, "a\n", scene.ReadFile("f"))
	scene.WriteFile("f", "a\nc\n")
	require.NoError(t, run(t, "commit", "-m", "X", "-b", "feature"))
	original := bookmarks(t, scene.Dir)["feature"]

	err := run(t, "rebase", "-s", "feature", "-d", "main")
	require.Equal(t, 1, cli.ExitCode(err))
	require.Contains(t, scene.ReadFile("f"), "<<<<<<<")
	require.NoError(t, run(t, "status"))
	require.NoError(t, run(t, "resolve", "--list"))

	// Still conflicted: continue refuses and leaves the operation paused.
	err = run(t, "rebase", "--continue")
	require.ErrorIs(t, err, errors.ErrUnresolvedConflicts)
	require.Equal(t, 1, cli.ExitCode(err))

	scene.WriteFile("f", "a\nb\nc\n")
	require.NoError(t, run(t, "resolve", "--mark", "f"))
	require.NoError(t, run(t, "rebase", "--continue"))

	after := bookmarks(t, scene.Dir)
	require.NotEqual(t, original, after["feature"])
	require.NoError(t, run(t, "log"))
	require.NoError(t, run(t, "debugmutations"))
	require.NoError(t, run(t, "backups"))
}

func TestAbortRoundTrip(t *testing.T) {
	scene := testhelpers.NewScene(t, nil)
	require.NoError(t, run(t, "init"))

	scene.WriteFile("f", "a\n")
	require.NoError(t, run(t, "commit", "-m", "A", "-b", "base"))
	scene.WriteFile("f", "a\nb\n")
	require.NoError(t, run(t, "commit", "-m", "D", "-b", "main"))
	require.NoError(t, run(t, "checkout", "base"))
	scene.WriteFile("f", "a\nc\n")
	require.NoError(t, run(t, "commit", "-m", "X", "-b", "feature"))
	before := bookmarks(t, scene.Dir)

	require.Equal(t, 1, cli.ExitCode(run(t, "rebase", "-b", "feature", "-d", "main")))
	require.NoError(t, run(t, "rebase", "--abort"))

	require.Equal(t, before, bookmarks(t, scene.Dir))
	require.Equal(t, "a\nc\n", scene.ReadFile("f"))
}

func TestConfigCommand(t *testing.T) {
	testhelpers.NewScene(t, nil)
	require.NoError(t, run(t, "init"))
	require.NoError(t, run(t, "config", "set", "merge.style", "extended"))
	require.NoError(t, run(t, "config", "get", "merge.style"))
	require.Error(t, run(t, "config", "set", "merge.style", "loud"))
	require.Error(t, run(t, "config", "get", "bogus"))
}
