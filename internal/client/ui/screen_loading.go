package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

// updateLoading handles loading screen updates
func (m *Model) updateLoading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		m.Disconnect()
		return m, tea.Quit
	}
	return m, nil
}

// viewLoading renders the loading/connection screen
func (m *Model) viewLoading() string {
	title := titleStyle.Render("CHATSTREAM")
	subtitle := subtitleStyle.Render("Connecting to " + m.roomID + "...")

	// Animated loading dots
	dots := strings.Repeat(".", m.loadingDots)
	spinner := spinnerStyle.Render(spinnerFrames[m.loadingDots%len(spinnerFrames)])

	loadingText := lipgloss.NewStyle().
		Foreground(mutedColor).
		Render("Establishing connection" + dots)

	status := spinner + " " + loadingText
	if m.waitingToRetry {
		status = spinner + " " + lipgloss.NewStyle().
			Foreground(mutedColor).
			Render("Retrying"+dots)
	}

	// Error message if connection failed
	var errorMsg string
	if m.err != nil {
		errorMsg = errorStyle.Render("\n\n✗ Connection failed: " + m.err.Error())
		errorMsg += statusStyle.Render("\nPress ESC to quit")
	}

	mainContent := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		subtitle,
		"\n\n",
		status,
		errorMsg,
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, mainContent)
}
