package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - Earthy tones (lighter for dark backgrounds)
var (
	primaryColor   = lipgloss.Color("#E8C4A0") // Light warm beige
	secondaryColor = lipgloss.Color("#7EBB81") // Light forest green
	accentColor    = lipgloss.Color("#A8C9A4") // Soft sage green
	successColor   = lipgloss.Color("#B5D99C") // Bright sage
	mutedColor     = lipgloss.Color("#B8A890") // Light taupe
	fgColor        = lipgloss.Color("#F5F3ED") // Warm white
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(1, 2).
			Align(lipgloss.Center)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Italic(true).
			Align(lipgloss.Center)

	chatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	senderStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	ownSenderStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	messageStyle = lipgloss.NewStyle().
			Foreground(fgColor)

	focusedMessageStyle = lipgloss.NewStyle().
				Foreground(fgColor).
				Background(lipgloss.Color("#3A3A3A")).
				Bold(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true).
				Align(lipgloss.Center)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E07B7B")).
			Bold(true)
)
