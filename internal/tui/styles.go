// Package tui renders grid change sets and KPI results for the terminal.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by every view.
const (
	ColorHeader    = lipgloss.Color("39")
	ColorBorder    = lipgloss.Color("240")
	ColorLabel     = lipgloss.Color("245")
	ColorValue     = lipgloss.Color("252")
	ColorMuted     = lipgloss.Color("241")
	ColorHighlight = lipgloss.Color("213")
	ColorOK        = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorError     = lipgloss.Color("196")
)

// Status markers for the change set table.
const (
	StatusNew      = "NEW"
	StatusModified = "MODIFIED"
	IconSelected   = "*"
	IconArrowRight = "→"
)
