package engine

import (
	"context"

	"graft.dev/graft/internal/backup"
	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/merge"
	"graft.dev/graft/internal/mutation"
	"graft.dev/graft/internal/objstore"
	"graft.dev/graft/internal/planner"
	"graft.dev/graft/internal/refs"
	"graft.dev/graft/internal/state"
	"graft.dev/graft/internal/workcopy"
)

// Logger receives progress messages. *tui.Splog satisfies it.
type Logger interface {
	Debug(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// Deps are the collaborators an Engine works against.
type Deps struct {
	Graph    *graph.Graph
	Objects  objstore.Store
	Refs     refs.Store
	WorkCopy *workcopy.WorkCopy
	States   *state.Store
	Log      *mutation.Log
	Backups  *backup.Manager
	// Policy defaults to planner.NearestCommonAncestor.
	Policy planner.DetachBasePolicy
	// Clock returns unix milliseconds for new commits. Defaults to cas.NowMs.
	Clock  func() int64
	Logger Logger
}

// Engine executes rebases. Callers must hold the repository lock.
type Engine struct {
	graph   *graph.Graph
	objects objstore.Store
	refs    refs.Store
	wc      *workcopy.WorkCopy
	states  *state.Store
	log     *mutation.Log
	backups *backup.Manager
	policy  planner.DetachBasePolicy
	now     func() int64
	logger  Logger
}

// New creates an Engine.
func New(deps Deps) *Engine {
	e := &Engine{
		graph:   deps.Graph,
		objects: deps.Objects,
		refs:    deps.Refs,
		wc:      deps.WorkCopy,
		states:  deps.States,
		log:     deps.Log,
		backups: deps.Backups,
		policy:  deps.Policy,
		now:     deps.Clock,
		logger:  deps.Logger,
	}
	if e.policy == nil {
		e.policy = planner.NearestCommonAncestor{}
	}
	if e.now == nil {
		e.now = cas.NowMs
	}
	if e.logger == nil {
		e.logger = nopLogger{}
	}
	return e
}

// ResultStatus says whether an operation finished or is waiting on conflicts.
type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusPaused    ResultStatus = "paused"
)

// Result is returned by Rebase and Continue.
type Result struct {
	Status      ResultStatus
	OperationID string
	// Mapping is original id -> outcome for every step run so far.
	Mapping map[string]state.MappingEntry
	// Commit is the original commit the operation paused on.
	Commit     string
	Conflicts  []merge.Conflict
	Warnings   []string
	BackupPath string
	Stripped   []string
}

// RebaseOptions configure a new rebase.
type RebaseOptions struct {
	Request planner.Request
	Keep    bool
	// NoBackup skips the bundle and therefore implies Keep.
	NoBackup   bool
	MergeStyle merge.Style
	WholeFile  []string
	// Force discards uncommitted working-copy changes.
	Force bool
}

// ContinueOptions carry resolutions for the paused step's conflicts.
type ContinueOptions struct {
	Resolutions map[string]state.Resolution
}

// StatusInfo describes the current operation.
type StatusInfo struct {
	Phase       state.Phase
	OperationID string
	Cursor      int
	Total       int
	// Commit is the original commit at the cursor.
	Commit      string
	Conflicts   []merge.Conflict
	Unresolved  []string
	Interrupted bool
}

// Idle reports whether no operation is in progress.
func (s *StatusInfo) Idle() bool {
	return s.Phase == state.PhaseIdle
}

// commit finds id in the graph or among the operation's pending commits.
func (e *Engine) commit(st *state.RebaseState, id string) (*graph.Commit, error) {
	if c, err := e.graph.Get(id); err == nil {
		return c, nil
	}
	if st != nil {
		for _, c := range st.Pending {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return nil, errors.NewCommitNotFoundError(id)
}

func (e *Engine) files(ctx context.Context, st *state.RebaseState, id string) (objstore.Files, error) {
	if id == "" {
		return objstore.Files{}, nil
	}
	c, err := e.commit(st, id)
	if err != nil {
		return nil, err
	}
	return objstore.ReadFiles(ctx, e.objects, c.Tree)
}

// snapshot captures the pointers abort restores.
func (e *Engine) snapshot(ctx context.Context) (state.Snapshot, error) {
	wc, err := e.refs.WorkingCopyParent(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	bookmarks, err := e.refs.Bookmarks(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	return state.Snapshot{WorkingCopyParent: wc, Bookmarks: bookmarks}, nil
}

func result(st *state.RebaseState, status ResultStatus) *Result {
	mapping := make(map[string]state.MappingEntry, len(st.Mapping))
	for k, v := range st.Mapping {
		mapping[k] = v
	}
	return &Result{
		Status:      status,
		OperationID: st.OperationID,
		Mapping:     mapping,
		Warnings:    append([]string(nil), st.Finalize.Warnings...),
	}
}
