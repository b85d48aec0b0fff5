package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"graft.dev/graft/internal/graph"
)

// GraftColors is the palette cycled through for graph columns.
var GraftColors = [][]int{
	{76, 203, 241},  // Light blue
	{77, 202, 125},  // Green
	{245, 200, 0},   // Yellow
	{248, 144, 72},  // Orange
	{235, 130, 188}, // Pink
	{159, 131, 228}, // Purple
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ConfigureColors selects the color profile for out. Output that is not a
// terminal, or NO_COLOR, gets plain text.
func ConfigureColors(out *os.File) {
	if os.Getenv("NO_COLOR") != "" || !isTerminal(out.Fd()) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
}

func fg(color string, text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

// ColorRed colors text red
func ColorRed(text string) string { return fg("1", text) }

// ColorGreen colors text green
func ColorGreen(text string) string { return fg("2", text) }

// ColorYellow colors text yellow
func ColorYellow(text string) string { return fg("3", text) }

// ColorCyan colors text cyan
func ColorCyan(text string) string { return fg("6", text) }

// ColorDim makes text gray
func ColorDim(text string) string { return fg("240", text) }

// ColorBookmark colors a bookmark name.
func ColorBookmark(name string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).Render(name)
}

// ColorCommitID colors an abbreviated commit id.
func ColorCommitID(id string) string { return fg("5", id) }

// ColorPhase colors a phase name; draft is left plain.
func ColorPhase(p graph.Phase) string {
	switch p {
	case graph.PhasePublic:
		return ColorDim(string(p))
	case graph.PhaseSecret:
		return ColorRed(string(p))
	default:
		return string(p)
	}
}

// ColumnColor colors text with the palette entry for a graph column.
func ColumnColor(text string, column int) string {
	c := GraftColors[column%len(GraftColors)]
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))).Render(text)
}
