package tui

import "github.com/charmbracelet/lipgloss"

// Muted palette that works on light backgrounds.
var (
	colorPrimary = lipgloss.Color("#374151") // Slate
	colorSuccess = lipgloss.Color("#2F855A") // Muted green
	colorError   = lipgloss.Color("#C53030") // Muted red
	colorWarn    = lipgloss.Color("#B7791F") // Muted amber
	colorSubtle  = lipgloss.Color("#4B5563") // Gray
	colorInfo    = lipgloss.Color("#2563EB") // Mid blue
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarn)

	pendingStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	runningStyle = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorSubtle).
			MarginTop(1)
)
