package terminal

import "github.com/charmbracelet/lipgloss"

var (
	assistantTag = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	promptTag = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	toolCallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)
