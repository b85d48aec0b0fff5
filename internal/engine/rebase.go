package engine

import (
	"bytes"
	"context"
	"fmt"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/merge"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/planner"
	"graft.dev/graft/internal/state"
)

// Rebase plans and executes a new operation. An invalid request creates no state.
func (e *Engine) Rebase(ctx context.Context, opts RebaseOptions) (*Result, error) {
	existing, err := e.states.Load()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewInProgressError("run 'graft rebase --continue' or 'graft rebase --abort'")
	}

	plan, err := planner.New(e.graph, e.policy).Plan(opts.Request)
	if err != nil {
		return nil, err
	}

	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !opts.Force {
		if err := e.checkClean(ctx, snap.WorkingCopyParent); err != nil {
			return nil, err
		}
	}

	style := opts.MergeStyle
	if style == "" {
		style = merge.StyleDefault
	}
	st := state.New(*plan, state.Options{
		Keep:       opts.Keep || opts.NoBackup,
		Backup:     !opts.NoBackup,
		MergeStyle: string(style),
		WholeFile:  opts.WholeFile,
	}, snap)
	if err := e.states.Begin(st); err != nil {
		return nil, err
	}
	e.logger.Debug("rebase %s: %d commit(s) onto %s", st.OperationID, len(plan.Steps), cas.Short(plan.Dest))
	return e.run(ctx, st)
}

// checkClean refuses to run over uncommitted working-copy changes.
func (e *Engine) checkClean(ctx context.Context, wcParent string) error {
	want, err := e.files(ctx, nil, wcParent)
	if err != nil {
		return err
	}
	have, err := e.wc.ReadAll()
	if err != nil {
		return err
	}
	if changed := merge.ChangedPaths(want, have); len(changed) > 0 {
		return fmt.Errorf("working copy has uncommitted changes (%d file(s)); commit them or pass --force", len(changed))
	}
	return nil
}

// run executes steps from the cursor until the plan ends or a step conflicts.
func (e *Engine) run(ctx context.Context, st *state.RebaseState) (*Result, error) {
	for st.CurrentStep() != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := *st.CurrentStep()
		res, err := e.execStep(ctx, st, step, nil)
		if err != nil {
			return nil, err
		}
		if !res.Clean() {
			return e.pause(st, step, res)
		}
		if err := e.states.Save(st); err != nil {
			return nil, err
		}
	}

	st.Phase = state.PhaseCompleting
	if err := e.states.Save(st); err != nil {
		return nil, err
	}
	return e.complete(ctx, st)
}

// pause materializes the conflicted tree in the working copy and persists Paused.
func (e *Engine) pause(st *state.RebaseState, step planner.Step, res *merge.TreeResult) (*Result, error) {
	if err := e.wc.Checkout(res.Files); err != nil {
		return nil, fmt.Errorf("write conflicts to working copy: %w", err)
	}
	st.Phase = state.PhasePaused
	st.Conflicts = res.Conflicts
	st.Resolutions = nil
	if err := e.states.Save(st); err != nil {
		return nil, err
	}
	e.logger.Debug("rebase %s paused on %s: %d conflict(s)", st.OperationID, cas.Short(step.Commit), len(res.Conflicts))

	out := result(st, StatusPaused)
	out.Commit = step.Commit
	out.Conflicts = res.Conflicts
	return out, nil
}

// execStep merges one step. On a clean result the new commit is staged as
// pending, the mapping updated and the cursor advanced (not yet saved).
func (e *Engine) execStep(ctx context.Context, st *state.RebaseState, step planner.Step, resolutions map[string]state.Resolution) (*merge.TreeResult, error) {
	orig, err := e.graph.Get(step.Commit)
	if err != nil {
		return nil, err
	}
	newParents := newParents(st, step)

	in, destID, err := e.inputs(ctx, st, step, orig, newParents)
	if err != nil {
		return nil, err
	}
	res := merge.MergeTrees(in, merge.Options{
		Style:       merge.Style(st.Options.MergeStyle),
		WholeFile:   st.Options.WholeFile,
		DestLabel:   cas.Short(destID),
		SourceLabel: orig.ShortID(),
	})
	applyResolutions(res, resolutions)
	if !res.Clean() {
		return res, nil
	}

	treeID, err := objstore.WriteFiles(ctx, e.objects, res.Files)
	if err != nil {
		return nil, fmt.Errorf("write tree for %s: %w", orig.ShortID(), err)
	}

	if len(newParents) == 1 {
		parent, err := e.commit(st, newParents[0])
		if err != nil {
			return nil, err
		}
		if parent.Tree == treeID {
			st.Mapping[orig.ID] = state.MappingEntry{New: parent.ID, Skipped: true}
			st.Cursor++
			e.logger.Debug("skipped %s: no changes left after rebase", orig.ShortID())
			return res, nil
		}
	}

	extra := make(map[string]string, len(orig.Extra)+1)
	for k, v := range orig.Extra {
		extra[k] = v
	}
	extra[graph.ExtraRebaseSource] = orig.ID
	rewritten, err := graph.NewCommit(newParents, treeID, orig.Author, e.now(), orig.Description, orig.Phase, extra)
	if err != nil {
		return nil, err
	}
	st.Pending = append(st.Pending, rewritten)
	st.Mapping[orig.ID] = state.MappingEntry{New: rewritten.ID}
	st.Cursor++
	e.logger.Debug("rebased %s as %s", orig.ShortID(), rewritten.ShortID())
	return res, nil
}

// newParents applies the parent rule: rewritten parents map to their new id,
// replaced parents become the destination, kept parents stay unless dropped.
func newParents(st *state.RebaseState, step planner.Step) []string {
	var out []string
	add := func(id string) {
		for _, existing := range out {
			if existing == id {
				return
			}
		}
		out = append(out, id)
	}
	for _, ref := range step.Parents {
		switch ref.Kind {
		case planner.ParentRewritten:
			add(st.Mapping[ref.Original].New)
		case planner.ParentReplaced:
			add(st.Plan.Dest)
		case planner.ParentKept:
			if !ref.Dropped {
				add(ref.Original)
			}
		}
	}
	if len(out) == 0 {
		add(st.Plan.Dest)
	}
	return out
}

// inputs chooses the base and original parent for a step and returns the id
// of the commit whose tree is the merge destination.
func (e *Engine) inputs(ctx context.Context, st *state.RebaseState, step planner.Step, orig *graph.Commit, parents []string) (merge.TreeInputs, string, error) {
	var in merge.TreeInputs
	var err error

	moving := -1
	for i, ref := range step.Parents {
		if ref.Moving() {
			moving = i
			break
		}
	}
	destID := parents[0]
	if moving >= 0 {
		ref := step.Parents[moving]
		switch ref.Kind {
		case planner.ParentRewritten:
			destID = st.Mapping[ref.Original].New
		default:
			destID = st.Plan.Dest
		}
	}

	if in.Source, err = e.files(ctx, st, orig.ID); err != nil {
		return in, "", err
	}
	if in.Dest, err = e.files(ctx, st, destID); err != nil {
		return in, "", err
	}

	switch {
	case step.DetachBase != "":
		if in.Base, err = e.files(ctx, st, step.DetachBase); err != nil {
			return in, "", err
		}
		in.Parent = in.Base
	case moving < 0:
		// a root commit: everything it holds is its own change
		in.Base, in.Parent = objstore.Files{}, objstore.Files{}
	default:
		ref := step.Parents[moving]
		if in.Parent, err = e.files(ctx, st, ref.Original); err != nil {
			return in, "", err
		}
		if ref.Kind == planner.ParentRewritten {
			// the destination is the rewritten parent, a successor of the original
			in.Base = in.Parent
			break
		}
		baseID, err := e.graph.MergeBase(ref.Original, st.Plan.Dest)
		if err != nil {
			return in, "", err
		}
		if in.Base, err = e.files(ctx, st, baseID); err != nil {
			return in, "", err
		}
	}
	return in, destID, nil
}

func applyResolutions(res *merge.TreeResult, resolutions map[string]state.Resolution) {
	if len(resolutions) == 0 {
		return
	}
	remaining := res.Conflicts[:0]
	for _, c := range res.Conflicts {
		r, ok := resolutions[c.Path]
		if !ok {
			remaining = append(remaining, c)
			continue
		}
		if r.Deleted {
			delete(res.Files, c.Path)
		} else {
			res.Files[c.Path] = r.Content
		}
	}
	res.Conflicts = remaining
}

// hasMarkers reports whether content still carries an unedited conflict block.
func hasMarkers(content []byte) bool {
	for _, line := range bytes.Split(content, []byte("\n")) {
		if bytes.HasPrefix(line, []byte("<<<<<<< ")) || bytes.HasPrefix(line, []byte(">>>>>>> ")) {
			return true
		}
	}
	return false
}
