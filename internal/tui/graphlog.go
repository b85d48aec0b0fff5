package tui

import (
	"fmt"
	"slices"
	"strings"

	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/refs"
)

// LogView is what the log renderer draws.
type LogView struct {
	Graph     *graph.Graph
	Bookmarks map[string]string
	// WorkingCopy is the working-copy parent, drawn as '@'.
	WorkingCopy string
	// Obsolete commits have been rewritten but are still present.
	Obsolete map[string]bool
	// Limit caps the number of commits shown; zero shows all.
	Limit int
}

// RenderLog draws the graph newest first, one line per commit, with a lane
// per open line of history.
func RenderLog(v LogView) string {
	order := v.Graph.TopoOrder(v.Graph.All())
	slices.Reverse(order)
	if v.Limit > 0 && len(order) > v.Limit {
		order = order[:v.Limit]
	}

	labels := make(map[string][]string)
	for _, name := range refs.SortedNames(v.Bookmarks) {
		id := v.Bookmarks[name]
		labels[id] = append(labels[id], name)
	}

	var b strings.Builder
	var lanes []string
	for _, id := range order {
		c, err := v.Graph.Get(id)
		if err != nil {
			continue
		}
		col := slices.Index(lanes, id)
		if col < 0 {
			lanes = append(lanes, id)
			col = len(lanes) - 1
		}

		for i := range lanes {
			if i == col {
				b.WriteString(ColumnColor(node(v, id), i) + " ")
			} else {
				b.WriteString(ColumnColor("│", i) + " ")
			}
		}
		b.WriteString(line(v, c, labels[id]))
		b.WriteByte('\n')

		// the commit's lane continues with its first parent; extra parents open lanes
		next := append([]string(nil), lanes[:col]...)
		if len(c.Parents) > 0 && !slices.Contains(lanes, c.Parents[0]) {
			next = append(next, c.Parents[0])
		}
		next = append(next, lanes[col+1:]...)
		for _, p := range c.Parents[min(1, len(c.Parents)):] {
			if !slices.Contains(next, p) {
				next = append(next, p)
			}
		}
		lanes = next
	}
	return b.String()
}

func node(v LogView, id string) string {
	switch {
	case id == v.WorkingCopy:
		return "@"
	case v.Obsolete[id]:
		return "x"
	default:
		return "◉"
	}
}

func line(v LogView, c *graph.Commit, bookmarks []string) string {
	parts := []string{ColorCommitID(c.ShortID())}
	for _, name := range bookmarks {
		parts = append(parts, ColorBookmark(name))
	}
	if c.Phase != graph.PhaseDraft {
		parts = append(parts, ColorPhase(c.Phase))
	}
	if v.Obsolete[c.ID] {
		parts = append(parts, ColorDim("(rewritten)"))
	}
	parts = append(parts, ColorDim(c.Author), c.Summary())
	return strings.Join(parts, " ")
}

// FormatCount returns "1 commit" or "n commits".
func FormatCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
