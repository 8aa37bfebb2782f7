package shell

import "github.com/charmbracelet/lipgloss"

var (
	colorDirectory = lipgloss.Color("39")  // Blue
	colorSuccess   = lipgloss.Color("34")  // Green
	colorError     = lipgloss.Color("196") // Red
	colorMuted     = lipgloss.Color("240") // Dark gray
)

type styles struct {
	directory lipgloss.Style
	success   lipgloss.Style
	err       lipgloss.Style
	muted     lipgloss.Style
	heading   lipgloss.Style
}

// newStyles binds the palette to r so that output written to a pipe or a
// buffer carries no escape sequences.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		directory: r.NewStyle().Foreground(colorDirectory).Bold(true),
		success:   r.NewStyle().Foreground(colorSuccess),
		err:       r.NewStyle().Foreground(colorError),
		muted:     r.NewStyle().Foreground(colorMuted),
		heading:   r.NewStyle().Bold(true),
	}
}
