package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorAccent  = lipgloss.Color("#F59E0B")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")

	promptStyle     = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	botNameStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	quickReplyStyle = lipgloss.NewStyle().Foreground(colorAccent)
	badgeStyle      = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warnStyle       = lipgloss.NewStyle().Foreground(colorWarning)
	mutedStyle      = lipgloss.NewStyle().Foreground(colorMuted)
	headingStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Underline(true)
)
