package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D7FF") // cyan: assistant / focus
	colorAccent  = lipgloss.Color("#AF87FF") // purple: tool calls
	colorUser    = lipgloss.Color("#87FF5F") // green: user input
	colorDanger  = lipgloss.Color("#FF5555") // red: errors
	colorBorder  = lipgloss.Color("#333355") // pane borders
)

// Transcript pane
var transcriptStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBorder)

// Input bar
var (
	inputBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	inputBarActiveStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)
)

// Status bar (top)
var statusBarStyle = lipgloss.NewStyle().
	Background(lipgloss.Color("#0D0D1A")).
	Foreground(colorPrimary).
	Padding(0, 1)

// Message labels
var (
	userLabelStyle      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	toolCallStyle       = lipgloss.NewStyle().Foreground(colorAccent)
	errorStyle          = lipgloss.NewStyle().Foreground(colorDanger)
)
