package engine

import (
	"context"
	"fmt"
	"os"

	"graft.dev/graft/internal/backup"
	"graft.dev/graft/internal/mutation"
	"graft.dev/graft/internal/refs"
	"graft.dev/graft/internal/state"
)

// complete runs the Completing sub-steps. Each is recorded in the state as it
// finishes, so a resumed completion skips what already happened.
func (e *Engine) complete(ctx context.Context, st *state.RebaseState) (*Result, error) {
	fin := &st.Finalize

	if !fin.Promoted {
		if err := e.graph.Insert(ctx, st.Pending...); err != nil {
			return nil, fmt.Errorf("promote rewritten commits: %w", err)
		}
		fin.Promoted = true
		if err := e.states.Save(st); err != nil {
			return nil, err
		}
	}

	if !fin.Recorded {
		if err := e.record(st); err != nil {
			return nil, err
		}
		fin.Recorded = true
		if err := e.states.Save(st); err != nil {
			return nil, err
		}
	}

	if !fin.BookmarksMoved {
		if err := e.movePointers(ctx, st); err != nil {
			return nil, err
		}
		fin.BookmarksMoved = true
		if err := e.states.Save(st); err != nil {
			return nil, err
		}
	}

	var stripped []string
	// originals are never removed without a bundle
	if !st.Options.Keep && st.Options.Backup && !fin.Stripped {
		var err error
		if stripped, err = e.strip(ctx, st); err != nil {
			return nil, err
		}
	}

	if err := e.states.Clear(); err != nil {
		return nil, err
	}
	e.logger.Debug("rebase %s completed", st.OperationID)

	out := result(st, StatusCompleted)
	out.BackupPath = fin.Bundle
	out.Stripped = stripped
	return out, nil
}

// record appends one mutation edge per rewritten commit, unless a previous
// attempt already wrote this operation's edges.
func (e *Engine) record(st *state.RebaseState) error {
	done, err := e.log.HasOperation(st.OperationID)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	ts := e.now()
	var records []mutation.Record
	for _, step := range st.Plan.Steps {
		entry, ok := st.Mapping[step.Commit]
		if !ok || entry.Skipped {
			continue
		}
		records = append(records, mutation.Record{
			Predecessors: []string{step.Commit},
			Successor:    entry.New,
			Kind:         mutation.KindRebase,
			Timestamp:    ts,
			Operation:    st.OperationID,
		})
	}
	return e.log.Append(records)
}

// movePointers moves bookmarks and the working-copy parent that still hold
// their pre-operation value, then re-materializes the working copy.
func (e *Engine) movePointers(ctx context.Context, st *state.RebaseState) error {
	current, err := e.refs.Bookmarks(ctx)
	if err != nil {
		return err
	}
	for _, name := range refs.SortedNames(st.Snapshot.Bookmarks) {
		was := st.Snapshot.Bookmarks[name]
		if current[name] != was {
			continue
		}
		if entry, ok := st.Mapping[was]; ok {
			if err := e.refs.SetBookmark(ctx, name, entry.New); err != nil {
				return err
			}
		}
	}

	wc, err := e.refs.WorkingCopyParent(ctx)
	if err != nil {
		return err
	}
	if wc == st.Snapshot.WorkingCopyParent {
		if entry, ok := st.Mapping[wc]; ok {
			wc = entry.New
			if err := e.refs.SetWorkingCopyParent(ctx, wc); err != nil {
				return err
			}
		}
	}
	files, err := e.files(ctx, st, wc)
	if err != nil {
		return err
	}
	return e.wc.Checkout(files)
}

// strip removes originals nothing else refers to. The bundle is written and
// recorded in the state before anything is removed.
func (e *Engine) strip(ctx context.Context, st *state.RebaseState) ([]string, error) {
	fin := &st.Finalize

	if fin.Strip == nil {
		referenced, err := refs.Referenced(ctx, e.refs)
		if err != nil {
			return nil, err
		}
		strip, keep := backup.Strippable(e.graph, referenced, st.Plan.Commits())
		if len(keep) > 0 {
			fin.Warnings = append(fin.Warnings, backup.OrphanWarning)
			e.logger.Warn("%s (%d commit(s) kept)", backup.OrphanWarning, len(keep))
		}
		fin.Strip = append([]string{}, strip...)
		if err := e.states.Save(st); err != nil {
			return nil, err
		}
	}

	var present []string
	for _, id := range fin.Strip {
		if e.graph.Has(id) {
			present = append(present, id)
		}
	}

	if len(present) > 0 {
		if fin.Bundle != "" {
			if _, err := backup.Read(fin.Bundle); err != nil {
				// unfinished or damaged bundle: discard it and write it again
				e.logger.Debug("discarding unreadable bundle %s: %v", fin.Bundle, err)
				if rmErr := os.Remove(fin.Bundle); rmErr != nil && !os.IsNotExist(rmErr) {
					return nil, rmErr
				}
				fin.Bundle = ""
			}
		}
		if fin.Bundle == "" {
			if len(present) != len(fin.Strip) {
				return nil, fmt.Errorf("cannot rewrite backup: %d of %d commits already stripped", len(fin.Strip)-len(present), len(fin.Strip))
			}
			path, err := e.backups.Write(ctx, e.graph, fin.Strip)
			if err != nil {
				return nil, fmt.Errorf("write backup bundle: %w", err)
			}
			fin.Bundle = path
			if err := e.states.Save(st); err != nil {
				return nil, err
			}
		}
	}

	if len(present) > 0 {
		if err := e.graph.Remove(ctx, present); err != nil {
			return nil, fmt.Errorf("strip originals: %w", err)
		}
	}
	fin.Stripped = true
	if err := e.states.Save(st); err != nil {
		return nil, err
	}
	return fin.Strip, nil
}
