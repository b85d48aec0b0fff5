// Package state persists the singleton record of an in-progress rebase so
// that pause, continue, abort and crash recovery all work from disk.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/fsutil"
	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/merge"
	"graft.dev/graft/internal/planner"
)

// FileName is the state record's name inside the metadata directory.
const FileName = "rebasestate"

// formatVersion is bumped when the record layout changes incompatibly.
const formatVersion = 1

// Phase is the persisted phase. Idle is the absence of a record.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRunning    Phase = "running"
	PhasePaused     Phase = "paused"
	PhaseCompleting Phase = "completing"
)

var transitions = map[Phase][]Phase{
	PhaseRunning:    {PhaseRunning, PhasePaused, PhaseCompleting},
	PhasePaused:     {PhasePaused, PhaseRunning},
	PhaseCompleting: {PhaseCompleting},
}

// CanTransition reports whether a persisted record may move from one phase to another.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Options are the user's choices, fixed when the operation starts.
type Options struct {
	Keep       bool     `json:"keep,omitempty"`
	Backup     bool     `json:"backup"`
	MergeStyle string   `json:"mergeStyle"`
	WholeFile  []string `json:"wholeFile,omitempty"`
}

// MappingEntry is the outcome for one original commit. For a skipped commit
// New is the commit its children attach to instead.
type MappingEntry struct {
	New     string `json:"new"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Snapshot holds the pointers to restore on abort.
type Snapshot struct {
	WorkingCopyParent string            `json:"workingCopyParent"`
	Bookmarks         map[string]string `json:"bookmarks"`
}

// Resolution is the caller-supplied outcome for one conflicted path.
type Resolution struct {
	Content []byte `json:"content,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Finalize tracks the completion sub-steps so each runs exactly once.
type Finalize struct {
	Promoted       bool     `json:"promoted,omitempty"`
	Recorded       bool     `json:"recorded,omitempty"`
	BookmarksMoved bool     `json:"bookmarksMoved,omitempty"`
	Strip          []string `json:"strip,omitempty"`
	Bundle         string   `json:"bundle,omitempty"`
	Stripped       bool     `json:"stripped,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// RebaseState is the in-progress operation record.
type RebaseState struct {
	Version     int                     `json:"version"`
	OperationID string                  `json:"operationId"`
	Phase       Phase                   `json:"phase"`
	StartedAt   int64                   `json:"startedAt"`
	Options     Options                 `json:"options"`
	Plan        planner.Plan            `json:"plan"`
	Cursor      int                     `json:"cursor"`
	Mapping     map[string]MappingEntry `json:"mapping"`
	Pending     []*graph.Commit         `json:"pending,omitempty"`
	Snapshot    Snapshot                `json:"snapshot"`
	Conflicts   []merge.Conflict        `json:"conflicts,omitempty"`
	Resolutions map[string]Resolution   `json:"resolutions,omitempty"`
	Finalize    Finalize                `json:"finalize"`
}

// New creates a Running record with a fresh operation id.
func New(plan planner.Plan, opts Options, snap Snapshot) *RebaseState {
	return &RebaseState{
		Version:     formatVersion,
		OperationID: uuid.NewString(),
		Phase:       PhaseRunning,
		StartedAt:   cas.NowMs(),
		Options:     opts,
		Plan:        plan,
		Mapping:     make(map[string]MappingEntry),
		Snapshot:    snap,
	}
}

// CurrentStep returns the step at the cursor, or nil when all steps ran.
func (s *RebaseState) CurrentStep() *planner.Step {
	if s.Cursor >= len(s.Plan.Steps) {
		return nil
	}
	return &s.Plan.Steps[s.Cursor]
}

// UnresolvedPaths lists conflicted paths without a resolution.
func (s *RebaseState) UnresolvedPaths() []string {
	var out []string
	for _, c := range s.Conflicts {
		if _, ok := s.Resolutions[c.Path]; !ok && !c.Resolved {
			out = append(out, c.Path)
		}
	}
	return out
}

// Rewritten returns original id -> new id for commits that were not skipped.
func (s *RebaseState) Rewritten() map[string]string {
	out := make(map[string]string)
	for orig, entry := range s.Mapping {
		if !entry.Skipped {
			out[orig] = entry.New
		}
	}
	return out
}

// Store reads and writes the record at <metaDir>/rebasestate.
type Store struct {
	path string
}

// NewStore creates a Store for a metadata directory.
func NewStore(metaDir string) *Store {
	return &Store{path: filepath.Join(metaDir, FileName)}
}

// Path returns the record's location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the record, or nil when no operation is in progress.
func (s *Store) Load() (*RebaseState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewIntegrityError("rebase state", err)
	}

	var st RebaseState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.NewIntegrityError("rebase state", err)
	}
	if st.Version != formatVersion {
		return nil, errors.NewIntegrityError("rebase state", fmt.Errorf("unsupported version %d", st.Version))
	}
	if _, ok := transitions[st.Phase]; !ok {
		return nil, errors.NewIntegrityError("rebase state", fmt.Errorf("unknown phase %q", st.Phase))
	}
	if st.Cursor < 0 || st.Cursor > len(st.Plan.Steps) {
		return nil, errors.NewIntegrityError("rebase state", fmt.Errorf("cursor %d out of range", st.Cursor))
	}
	if st.Mapping == nil {
		st.Mapping = make(map[string]MappingEntry)
	}
	return &st, nil
}

// Phase returns the persisted phase, PhaseIdle when there is no record.
func (s *Store) Phase() (Phase, error) {
	st, err := s.Load()
	if err != nil {
		return "", err
	}
	if st == nil {
		return PhaseIdle, nil
	}
	return st.Phase, nil
}

// Begin persists a new record. It fails if any record already exists.
func (s *Store) Begin(st *RebaseState) error {
	if _, err := os.Stat(s.path); err == nil {
		return errors.NewInProgressError("run 'graft rebase --continue' or 'graft rebase --abort'")
	}
	if st.Phase != PhaseRunning {
		return fmt.Errorf("new operation must start running, not %s", st.Phase)
	}
	return s.write(st)
}

// Save persists st after checking the phase transition from the stored record.
func (s *Store) Save(st *RebaseState) error {
	current, err := s.Load()
	if err != nil {
		return err
	}
	if current == nil {
		return errors.ErrNoOperationInProgress
	}
	if current.OperationID != st.OperationID {
		return fmt.Errorf("operation %s does not own the rebase state", st.OperationID)
	}
	if !CanTransition(current.Phase, st.Phase) {
		return fmt.Errorf("invalid rebase state transition %s -> %s", current.Phase, st.Phase)
	}
	return s.write(st)
}

func (s *Store) write(st *RebaseState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rebase state: %w", err)
	}
	if err := fsutil.SafeWrite(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to persist rebase state: %w", err)
	}
	return nil
}

// Clear removes the record, returning the store to Idle.
func (s *Store) Clear() error {
	if err := fsutil.RemoveDurable(s.path); err != nil {
		return fmt.Errorf("failed to clear rebase state: %w", err)
	}
	return nil
}
