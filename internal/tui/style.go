package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/baiirun/openfocus/internal/model"
)

// Status icons shared by the TUI and the list command.
const (
	IconOpen     = "○"
	IconFlagged  = "⚑"
	IconOverdue  = "!"
	IconDone     = "✓"
	IconDeferred = "◌"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	DueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	iconColors = map[string]lipgloss.Color{
		IconOpen:     lipgloss.Color("252"),
		IconFlagged:  lipgloss.Color("214"),
		IconOverdue:  lipgloss.Color("196"),
		IconDone:     lipgloss.Color("42"),
		IconDeferred: lipgloss.Color("245"),
	}
)

// TaskIcon picks the status icon for t as of now. Completion wins over an
// overdue date, which wins over the flag.
func TaskIcon(t model.Task, now time.Time) string {
	switch {
	case t.IsComplete():
		return IconDone
	case t.Due != nil && t.Due.Before(now):
		return IconOverdue
	case t.Flagged:
		return IconFlagged
	case t.Start != nil && t.Start.After(now):
		return IconDeferred
	default:
		return IconOpen
	}
}

// StyledIcon is TaskIcon in its status color.
func StyledIcon(t model.Task, now time.Time) string {
	icon := TaskIcon(t, now)
	return lipgloss.NewStyle().Foreground(iconColors[icon]).Render(icon)
}
