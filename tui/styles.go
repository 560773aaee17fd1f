package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent   = "#4A9EFF"
	colorDone     = "#04B575"
	colorCached   = "#5FD7FF"
	colorFailed   = "#FF5F5F"
	colorWarn     = "#FFAF00"
	colorMuted    = "#626262"
	colorContrast = "#FAFAFA"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorAccent)).
		MarginTop(1).
		MarginBottom(1)

	doneStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorDone))

	cachedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorCached))

	failedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorFailed))

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorWarn))

	mutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorMuted))

	resultBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorAccent)).
		Padding(1, 2)

	bannerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorContrast)).
		Background(lipgloss.Color(colorAccent)).
		Padding(0, 1)
)
