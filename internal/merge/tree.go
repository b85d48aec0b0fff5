// Package merge computes the result of replaying one commit's changes onto a
// destination tree. It performs no I/O: inputs and outputs are file maps.
package merge

import (
	"bytes"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"graft.dev/graft/internal/objstore"
)

// ConflictKind classifies a conflicted path.
type ConflictKind string

const (
	ConflictContent      ConflictKind = "content"
	ConflictDeleteModify ConflictKind = "delete-modify" // dest deleted, source modified
	ConflictModifyDelete ConflictKind = "modify-delete" // dest modified, source deleted
	ConflictAddAdd       ConflictKind = "add-add"
	ConflictBinary       ConflictKind = "binary"
)

// Conflict records one path that could not be merged automatically.
// It is cleared only by an explicit resolution.
type Conflict struct {
	Path     string       `json:"path"`
	Kind     ConflictKind `json:"kind"`
	Regions  []Region     `json:"regions,omitempty"`
	Resolved bool         `json:"resolved,omitempty"`
}

// TreeInputs are the four trees involved in replaying Source (whose original
// parent was Parent) onto Dest, with Base as the merge base.
type TreeInputs struct {
	Base   objstore.Files
	Parent objstore.Files
	Source objstore.Files
	Dest   objstore.Files
}

// TreeResult holds the merged files. When Conflicts is non-empty, conflicted
// paths carry marker content (or the surviving side) for the working copy.
type TreeResult struct {
	Files     objstore.Files
	Conflicts []Conflict
}

// Clean reports whether the merge produced no conflicts.
func (r *TreeResult) Clean() bool {
	return len(r.Conflicts) == 0
}

// ConflictPaths returns the conflicted paths in order.
func (r *TreeResult) ConflictPaths() []string {
	paths := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		paths[i] = c.Path
	}
	return paths
}

// ChangedPaths returns the sorted paths whose presence or content differ between from and to.
func ChangedPaths(from, to objstore.Files) []string {
	var out []string
	for p, data := range to {
		if old, ok := from[p]; !ok || !bytes.Equal(old, data) {
			out = append(out, p)
		}
	}
	for p := range from {
		if _, ok := to[p]; !ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// MergeTrees replays the changes Source made relative to Parent onto Dest.
// Paths Source did not touch keep Dest's content. Touched paths are merged
// three-way against Base; when Dest did not also change them, Source's version
// is taken as is.
func MergeTrees(in TreeInputs, opts Options) *TreeResult {
	res := &TreeResult{Files: in.Dest.Clone()}
	for _, p := range ChangedPaths(in.Parent, in.Source) {
		b, hasB := in.Base[p]
		d, hasD := in.Dest[p]
		s, hasS := in.Source[p]
		mergePath(res, p, side{b, hasB}, side{d, hasD}, side{s, hasS}, opts)
	}
	sort.Slice(res.Conflicts, func(i, j int) bool { return res.Conflicts[i].Path < res.Conflicts[j].Path })
	return res
}

type side struct {
	data    []byte
	present bool
}

func (x side) equal(y side) bool {
	return x.present == y.present && bytes.Equal(x.data, y.data)
}

func (r *TreeResult) take(p string, x side) {
	if x.present {
		r.Files[p] = x.data
	} else {
		delete(r.Files, p)
	}
}

func mergePath(res *TreeResult, p string, base, dest, source side, opts Options) {
	switch {
	case dest.equal(source), base.equal(source):
		res.take(p, dest)
		return
	case base.equal(dest):
		res.take(p, source)
		return
	}

	// both sides changed the path, differently
	switch {
	case !dest.present:
		res.take(p, source)
		res.Conflicts = append(res.Conflicts, Conflict{Path: p, Kind: ConflictDeleteModify})
	case !source.present:
		res.take(p, dest)
		res.Conflicts = append(res.Conflicts, Conflict{Path: p, Kind: ConflictModifyDelete})
	case isBinary(dest.data) || isBinary(source.data) || (base.present && isBinary(base.data)) || wholeFile(p, opts.WholeFile):
		res.take(p, dest)
		res.Conflicts = append(res.Conflicts, Conflict{Path: p, Kind: ConflictBinary})
	default:
		kind := ConflictContent
		if !base.present {
			kind = ConflictAddAdd
		}
		fr := Merge3(base.data, dest.data, source.data, opts)
		res.Files[p] = fr.Content
		if fr.Conflict {
			res.Conflicts = append(res.Conflicts, Conflict{Path: p, Kind: kind, Regions: fr.Regions})
		}
	}
}

// binarySniffLen matches the prefix git inspects for NUL bytes.
const binarySniffLen = 8000

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

func wholeFile(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
