package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#4F46E5")
	mutedColor   = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	toggleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 2)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#059669"))

	userTextStyle = lipgloss.NewStyle().PaddingLeft(2)

	shortcutStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	selectedShortcutStyle = shortcutStyle.
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(primaryColor)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	disabledInputStyle = inputStyle.BorderForeground(mutedColor)

	helpStyle = lipgloss.NewStyle().Foreground(mutedColor)
)
