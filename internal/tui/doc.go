// Package tui provides the terminal user interface for graft.
//
// It handles:
//   - Structured console and file logging (Splog)
//   - Interactive prompts (bubbletea, bubbles and survey)
//   - Terminal styling and colors (lipgloss, with termenv profiles)
//   - Rendering of the commit graph
package tui
