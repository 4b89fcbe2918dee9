package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/chatstream/internal/feed"
	"github.com/yourusername/chatstream/internal/memstore"
)

// updateChat handles key input on the chat screen
func (m *Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Disconnect()
		return m, tea.Quit

	case "esc":
		m.mode = modeMessage
		m.input.Placeholder = "Type a message"
		m.input.Reset()
		m.anchor.Abort(feed.ErrSuperseded)
		return m, nil

	case "ctrl+f":
		m.mode = modeSearch
		m.input.Placeholder = "Search messages"
		m.input.Reset()
		return m, nil

	case "ctrl+n":
		return m, fetchCmd(m.controller.NextSearchResult)

	case "ctrl+p":
		return m, fetchCmd(m.controller.PreviousSearchResult)

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		if m.mode == modeSearch {
			return m, fetchCmd(func(ctx context.Context) error {
				_, err := m.controller.Search(ctx, text)
				return err
			})
		}
		message := memstore.ChatMessage{Text: text}
		return m, func() tea.Msg {
			if err := m.chatClient.SendMessage(m.roomID, message); err != nil {
				return fetchErrorMsg{err: err}
			}
			return nil
		}

	case "up", "down", "pgup", "pgdown":
		// Manual scrolling supersedes any running focus animation.
		m.anchor.Abort(feed.ErrSuperseded)
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.updateVisibility()
		return m, tea.Batch(cmd, m.edgeFetchCmd())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// viewChat renders the chat screen: message feed above, input below
func (m *Model) viewChat() string {
	header := titleStyle.Render("# " + m.roomID)

	feedBox := chatBoxStyle.
		Width(m.viewport.Width + 2).
		Render(m.viewport.View())

	inputBox := inputBoxStyle.
		Width(m.viewport.Width + 2).
		Render(m.input.View())

	statusLine := ""
	if m.status != "" {
		statusLine = statusStyle.Render(m.status)
	}

	hints := statusStyle.Render("enter send  •  ctrl+f search  •  ctrl+n/ctrl+p results  •  ctrl+c quit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		feedBox,
		inputBox,
		statusLine,
		hints,
	)
}
