// Package mutation records which commits were rewritten into which. The log
// is append-only: entries are never modified or removed.
package mutation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/fsutil"
)

// FileName is the log's name inside the metadata directory.
const FileName = "mutations.log"

// KindRebase marks records written by a completed rebase.
const KindRebase = "rebase"

// Record is one predecessor -> successor edge.
type Record struct {
	Predecessors []string `json:"predecessors"`
	Successor    string   `json:"successor"`
	Kind         string   `json:"kind"`
	Timestamp    int64    `json:"timestamp"`
	Operation    string   `json:"operation"`
}

// Log is a JSON-lines file of records.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog opens the log at <metaDir>/mutations.log. The file is created on first append.
func NewLog(metaDir string) *Log {
	return &Log{path: filepath.Join(metaDir, FileName)}
}

// Path returns the log location.
func (l *Log) Path() string {
	return l.path
}

// Append writes records with a single fsynced append. A torn final line from
// an interrupted append is dropped first so the new records start on a line
// of their own.
func (l *Log) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal mutation record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fsutil.TrimPartialLine(l.path); err != nil {
		return fmt.Errorf("repair mutation log: %w", err)
	}
	if err := fsutil.SafeAppend(l.path, buf.Bytes()); err != nil {
		return fmt.Errorf("append mutation log: %w", err)
	}
	return nil
}

// All reads every record in append order. A torn final line left by a crash
// mid-append is ignored; any other malformed line is an integrity error.
func (l *Log) All() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mutation log: %w", err)
	}

	var out []Record
	lineNo := 0
	for len(data) > 0 {
		lineNo++
		i := bytes.IndexByte(data, '\n')
		terminated := i >= 0
		var line []byte
		if terminated {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			if !terminated {
				break
			}
			return nil, errors.NewIntegrityError(fmt.Sprintf("mutation log line %d", lineNo), err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Successors returns the ids id was directly rewritten into, sorted.
func (l *Log) Successors(id string) ([]string, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, r := range records {
		for _, p := range r.Predecessors {
			if p == id {
				seen[r.Successor] = true
			}
		}
	}
	return sortedSet(seen), nil
}

// Predecessors returns the ids that were directly rewritten into id, sorted.
func (l *Log) Predecessors(id string) ([]string, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, r := range records {
		if r.Successor == id {
			for _, p := range r.Predecessors {
				seen[p] = true
			}
		}
	}
	return sortedSet(seen), nil
}

// HasOperation reports whether any record was written by operation opID.
func (l *Log) HasOperation(opID string) (bool, error) {
	records, err := l.All()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Operation == opID {
			return true, nil
		}
	}
	return false, nil
}

// Obsolete returns every commit that has at least one successor.
func (l *Log) Obsolete() (map[string]bool, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, r := range records {
		for _, p := range r.Predecessors {
			out[p] = true
		}
	}
	return out, nil
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
