package actions

import (
	"graft.dev/graft/internal/engine"
	"graft.dev/graft/internal/runtime"
)

// ContinueAction resumes a paused or interrupted rebase.
func ContinueAction(ctx *runtime.Context) (*engine.Result, error) {
	res, err := ctx.Repo.Engine.Continue(ctx, engine.ContinueOptions{})
	if err != nil {
		return nil, err
	}
	return res, reportResult(ctx, res)
}
