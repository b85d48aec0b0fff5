package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/state"
)

// Continue resumes the operation in progress. A paused operation needs a
// resolution for every conflict, supplied here or marked earlier; otherwise
// ErrUnresolvedConflicts is returned and the paused state is left untouched.
// A Running or Completing record left by a killed process resumes at its cursor.
func (e *Engine) Continue(ctx context.Context, opts ContinueOptions) (*Result, error) {
	st, err := e.states.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.ErrNoOperationInProgress
	}

	switch st.Phase {
	case state.PhaseCompleting:
		e.logger.Debug("resuming completion of %s", st.OperationID)
		return e.complete(ctx, st)
	case state.PhaseRunning:
		e.logger.Debug("resuming interrupted rebase %s at step %d", st.OperationID, st.Cursor)
		return e.run(ctx, st)
	}

	resolutions := make(map[string]state.Resolution, len(st.Resolutions)+len(opts.Resolutions))
	for p, r := range st.Resolutions {
		resolutions[p] = r
	}
	for p, r := range opts.Resolutions {
		resolutions[p] = r
	}
	var unresolved []string
	for _, c := range st.Conflicts {
		if _, ok := resolutions[c.Path]; !ok {
			unresolved = append(unresolved, c.Path)
		}
	}
	if len(unresolved) > 0 {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnresolvedConflicts, strings.Join(unresolved, ", "))
	}

	step := st.CurrentStep()
	if step == nil {
		return nil, errors.NewIntegrityError("rebase state", fmt.Errorf("paused with no step at cursor %d", st.Cursor))
	}
	current := *step

	st.Phase = state.PhaseRunning
	st.Conflicts = nil
	st.Resolutions = nil
	res, err := e.execStep(ctx, st, current, resolutions)
	if err != nil {
		return nil, err
	}
	if !res.Clean() {
		return e.pause(st, current, res)
	}
	if err := e.states.Save(st); err != nil {
		return nil, err
	}
	return e.run(ctx, st)
}

// Abort restores the working-copy parent and every bookmark from the
// snapshot and clears the state. Commits created so far were never promoted,
// so the graph and the mutation log are unchanged.
func (e *Engine) Abort(ctx context.Context) error {
	st, err := e.states.Load()
	if err != nil {
		return err
	}
	if st == nil {
		return errors.ErrNoOperationInProgress
	}
	if st.Phase == state.PhaseCompleting {
		return errors.NewInProgressError("the rebase is already completing; run 'graft rebase --continue' to finish it")
	}

	current, err := e.refs.Bookmarks(ctx)
	if err != nil {
		return err
	}
	for name := range current {
		if _, ok := st.Snapshot.Bookmarks[name]; !ok {
			if err := e.refs.DeleteBookmark(ctx, name); err != nil {
				return err
			}
		}
	}
	for name, id := range st.Snapshot.Bookmarks {
		if current[name] == id {
			continue
		}
		if err := e.refs.SetBookmark(ctx, name, id); err != nil {
			return err
		}
	}

	wc := st.Snapshot.WorkingCopyParent
	if err := e.refs.SetWorkingCopyParent(ctx, wc); err != nil {
		return err
	}
	files, err := e.files(ctx, nil, wc)
	if err != nil {
		return err
	}
	if err := e.wc.Checkout(files); err != nil {
		return fmt.Errorf("restore working copy: %w", err)
	}

	e.logger.Debug("aborted rebase %s, discarded %d pending commit(s)", st.OperationID, len(st.Pending))
	return e.states.Clear()
}

// Status reports the current operation without changing it.
func (e *Engine) Status(_ context.Context) (*StatusInfo, error) {
	st, err := e.states.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &StatusInfo{Phase: state.PhaseIdle}, nil
	}
	info := &StatusInfo{
		Phase:       st.Phase,
		OperationID: st.OperationID,
		Cursor:      st.Cursor,
		Total:       len(st.Plan.Steps),
		Conflicts:   st.Conflicts,
		Unresolved:  st.UnresolvedPaths(),
		Interrupted: st.Phase != state.PhasePaused,
	}
	if step := st.CurrentStep(); step != nil {
		info.Commit = step.Commit
	}
	return info, nil
}

// MarkResolved records the working-copy content of conflicted paths as their
// resolution. A missing file resolves to a deletion. With no paths, every
// conflicted path is marked.
func (e *Engine) MarkResolved(_ context.Context, paths []string) ([]string, error) {
	st, err := e.states.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.ErrNoOperationInProgress
	}
	if st.Phase != state.PhasePaused {
		return nil, fmt.Errorf("no conflicts to resolve: rebase is %s", st.Phase)
	}

	conflicted := make(map[string]bool, len(st.Conflicts))
	for _, c := range st.Conflicts {
		conflicted[c.Path] = true
	}
	if len(paths) == 0 {
		for p := range conflicted {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	if st.Resolutions == nil {
		st.Resolutions = make(map[string]state.Resolution)
	}
	for _, p := range paths {
		if !conflicted[p] {
			return nil, fmt.Errorf("%s is not in conflict", p)
		}
		data, ok, err := e.wc.Read(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			st.Resolutions[p] = state.Resolution{Deleted: true}
			continue
		}
		if hasMarkers(data) {
			return nil, fmt.Errorf("%s still contains conflict markers", p)
		}
		st.Resolutions[p] = state.Resolution{Content: data}
	}
	for i := range st.Conflicts {
		if _, ok := st.Resolutions[st.Conflicts[i].Path]; ok {
			st.Conflicts[i].Resolved = true
		}
	}
	if err := e.states.Save(st); err != nil {
		return nil, err
	}
	return paths, nil
}
