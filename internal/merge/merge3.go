package merge

import (
	"bytes"
	"strings"
)

// Style selects the conflict marker format.
type Style string

const (
	// StyleDefault shows only the two differing sides
	StyleDefault Style = "default"
	// StyleExtended also shows the base content between ||||||| and =======
	StyleExtended Style = "extended"
)

const (
	markerStart = "<<<<<<<"
	markerBase  = "|||||||"
	markerMid   = "======="
	markerEnd   = ">>>>>>>"
)

// Options configure a merge.
type Options struct {
	Style Style
	// WholeFile globs name paths that are never line-merged.
	WholeFile []string
	// DestLabel and SourceLabel follow "dest: " and "source: " in markers.
	DestLabel   string
	SourceLabel string
	// Differ defaults to LineDiff.
	Differ Differ
}

// Region is one conflicting hunk. Line is the 1-based line of its start marker.
type Region struct {
	Line   int    `json:"line"`
	Base   string `json:"base"`
	Dest   string `json:"dest"`
	Source string `json:"source"`
}

// FileResult is the outcome of a line-level merge.
type FileResult struct {
	Content  []byte
	Conflict bool
	Regions  []Region
}

type chunk struct {
	stable bool
	base   []string
	dest   []string
	source []string
}

// Merge3 performs a diff3 merge of dest and source against base. Overlapping
// changes become conflict regions rendered in the configured marker style.
func Merge3(base, dest, source []byte, opts Options) FileResult {
	switch {
	case bytes.Equal(dest, source), bytes.Equal(base, source):
		return FileResult{Content: dest}
	case bytes.Equal(base, dest):
		return FileResult{Content: source}
	}

	differ := opts.Differ
	if differ == nil {
		differ = LineDiff
	}
	o, a, b := SplitLines(base), SplitLines(dest), SplitLines(source)
	chunks := diff3(o, differ(o, a), differ(o, b), a, b)

	var out strings.Builder
	var res FileResult
	line := 1
	for _, c := range chunks {
		if c.stable {
			line += writeLines(&out, c.base)
			continue
		}
		switch {
		case equalLines(c.dest, c.source), equalLines(c.base, c.source):
			line += writeLines(&out, c.dest)
		case equalLines(c.base, c.dest):
			line += writeLines(&out, c.source)
		default:
			res.Conflict = true
			res.Regions = append(res.Regions, Region{
				Line:   line,
				Base:   strings.Join(c.base, ""),
				Dest:   strings.Join(c.dest, ""),
				Source: strings.Join(c.source, ""),
			})
			line += writeConflict(&out, c, opts)
		}
	}
	res.Content = []byte(out.String())
	return res
}

// diff3 walks the base with two alignments and splits the three files into
// stable chunks (all three agree) and unstable chunks (something changed).
func diff3(o []string, matchA, matchB []int, a, b []string) []chunk {
	var chunks []chunk
	io, ia, ib := 0, 0, 0
	for io < len(o) || ia < len(a) || ib < len(b) {
		k := 0
		for io+k < len(o) && matchA[io+k] == ia+k && matchB[io+k] == ib+k {
			k++
		}
		if k > 0 {
			chunks = append(chunks, chunk{stable: true, base: o[io : io+k]})
			io, ia, ib = io+k, ia+k, ib+k
			continue
		}

		next := -1
		for x := io; x < len(o); x++ {
			if matchA[x] >= 0 && matchB[x] >= 0 {
				next = x
				break
			}
		}
		if next < 0 {
			chunks = append(chunks, chunk{base: o[io:], dest: a[ia:], source: b[ib:]})
			break
		}
		na, nb := matchA[next], matchB[next]
		chunks = append(chunks, chunk{base: o[io:next], dest: a[ia:na], source: b[ib:nb]})
		io, ia, ib = next, na, nb
	}
	return chunks
}

// writeConflict is the single place where the marker style is chosen.
func writeConflict(out *strings.Builder, c chunk, opts Options) int {
	n := 0
	n += writeMarker(out, markerStart, "dest", opts.DestLabel)
	n += writeLines(out, c.dest)
	switch opts.Style {
	case StyleExtended:
		n += writeMarker(out, markerBase, "base", "")
		n += writeLines(out, c.base)
	}
	n += writeMarker(out, markerMid, "", "")
	n += writeLines(out, c.source)
	n += writeMarker(out, markerEnd, "source", opts.SourceLabel)
	return n
}

func writeMarker(out *strings.Builder, marker, side, label string) int {
	terminate(out)
	out.WriteString(marker)
	switch {
	case side != "" && label != "":
		out.WriteString(" " + side + ": " + label)
	case side != "":
		out.WriteString(" " + side)
	}
	out.WriteByte('\n')
	return 1
}

// writeLines writes lines, terminating a final line that lacks a newline only
// when more output follows it. Returns the number of lines written.
func writeLines(out *strings.Builder, lines []string) int {
	for _, l := range lines {
		terminate(out)
		out.WriteString(l)
	}
	return len(lines)
}

func terminate(out *strings.Builder) {
	if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
		out.WriteByte('\n')
	}
}

func equalLines(x, y []string) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
