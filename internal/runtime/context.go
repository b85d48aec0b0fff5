package runtime

import (
	"context"
	"fmt"
	"os"

	"graft.dev/graft/internal/repo"
	"graft.dev/graft/internal/tui"
)

// Context provides access to the open repository and output for commands.
type Context struct {
	context.Context
	Repo     *repo.Repo
	Splog    *tui.Splog
	RepoRoot string
}

// NewContext wraps an open repository.
func NewContext(ctx context.Context, r *repo.Repo, splog *tui.Splog) *Context {
	if splog == nil {
		splog = tui.NewSplog()
	}
	return &Context{Context: ctx, Repo: r, Splog: splog, RepoRoot: r.Root}
}

// NewSplog returns the console logger, also writing to the log file when it
// can be created.
func NewSplog() *tui.Splog {
	splog, err := tui.NewSplogWithConfig(os.Stdout, tui.GetLogFilePath())
	if err != nil {
		return tui.NewSplog()
	}
	return splog
}

// GetContext finds the repository containing the working directory and
// opens it. The caller must Close the context.
func GetContext(ctx context.Context) (*Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := repo.Find(wd)
	if err != nil {
		return nil, fmt.Errorf("%w. Run 'graft init' first", err)
	}
	splog := NewSplog()
	r, err := repo.Open(ctx, root, splog)
	if err != nil {
		_ = splog.Close()
		return nil, err
	}
	return NewContext(ctx, r, splog), nil
}

// Close releases the repository and the log file.
func (c *Context) Close() error {
	err := c.Repo.Close()
	if cerr := c.Splog.Close(); err == nil {
		err = cerr
	}
	return err
}
