package ui

import "github.com/charmbracelet/lipgloss"

// TitleStyle and DocStyle frame the cli package's round/dry-run banners,
// carried over from the teacher's own menu-header styling.
var (
	TitleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	DocStyle = lipgloss.NewStyle().
			Margin(1, 2)
)
