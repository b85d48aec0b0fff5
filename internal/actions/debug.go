package actions

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/mutation"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/state"
	"graft.dev/graft/internal/tui"
)

// DebugOptions contains options for the debug command
type DebugOptions struct {
	Limit int // Limit number of recent mutation records to show (0 = all)
}

// DebugInfo represents the complete debugging information
type DebugInfo struct {
	Timestamp     time.Time          `json:"timestamp"`
	Repository    RepositoryInfo     `json:"repository"`
	Bookmarks     map[string]string  `json:"bookmarks"`
	WorkingCopy   string             `json:"working_copy_parent,omitempty"`
	Operation     *state.RebaseState `json:"operation,omitempty"`
	RecentRecords []mutation.Record  `json:"recent_mutations,omitempty"`
	BackupBundles []string           `json:"backup_bundles,omitempty"`
}

// RepositoryInfo represents basic repository information
type RepositoryInfo struct {
	RepoRoot string `json:"repo_root"`
	Commits  int    `json:"commits"`
}

// DebugAction collects and outputs debugging information
func DebugAction(ctx *runtime.Context, opts DebugOptions) error {
	r := ctx.Repo

	bookmarks, err := r.DB.Bookmarks(ctx)
	if err != nil {
		return err
	}
	wc, err := r.DB.WorkingCopyParent(ctx)
	if err != nil {
		return err
	}
	op, err := r.States.Load()
	if err != nil {
		return err
	}
	records, err := r.Log.All()
	if err != nil {
		return err
	}
	if opts.Limit > 0 && opts.Limit < len(records) {
		records = records[len(records)-opts.Limit:]
	}
	bundles, err := r.Backups.List()
	if err != nil {
		return err
	}

	debugInfo := DebugInfo{
		Timestamp:     time.Now(),
		Repository:    RepositoryInfo{RepoRoot: ctx.RepoRoot, Commits: r.Graph.Len()},
		Bookmarks:     bookmarks,
		WorkingCopy:   wc,
		Operation:     op,
		RecentRecords: records,
		BackupBundles: bundles,
	}

	jsonData, err := json.MarshalIndent(debugInfo, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal debug info: %w", err)
	}
	ctx.Splog.Page(string(jsonData) + "\n")
	return nil
}

// DebugMutationsAction prints the mutation log, one edge per line. With a
// rev it prints only the edges touching that commit.
func DebugMutationsAction(ctx *runtime.Context, rev string) error {
	records, err := ctx.Repo.Log.All()
	if err != nil {
		return err
	}

	var filter string
	if rev != "" {
		if filter, err = ctx.Repo.ResolveRev(ctx, rev); err != nil {
			// Stripped commits no longer resolve; match the prefix against the log.
			if !cas.IsHex(rev) {
				return err
			}
			filter = rev
		}
	}

	shown := 0
	for _, rec := range records {
		if filter != "" && !strings.HasPrefix(rec.Successor, filter) && !containsPrefix(rec.Predecessors, filter) {
			continue
		}
		preds := make([]string, len(rec.Predecessors))
		for i, p := range rec.Predecessors {
			preds[i] = tui.ColorCommitID(cas.Short(p))
		}
		ctx.Splog.Info("%s -> %s %s %s", strings.Join(preds, ","), tui.ColorCommitID(cas.Short(rec.Successor)),
			rec.Kind, tui.ColorDim(time.UnixMilli(rec.Timestamp).UTC().Format(time.RFC3339)))
		shown++
	}
	if shown == 0 {
		ctx.Splog.Info("No mutation records.")
	}
	return nil
}

func containsPrefix(ids []string, prefix string) bool {
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}
