package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yourusername/chatstream/internal/client/connection"
	"github.com/yourusername/chatstream/internal/feed"
	"github.com/yourusername/chatstream/internal/memstore"
)

// connectionSuccessMsg is sent when connection is established
type connectionSuccessMsg struct{}

// connectionErrorMsg is sent when connection fails
type connectionErrorMsg struct {
	err error
}

// connectionEventMsg wraps events from the connection manager
type connectionEventMsg struct {
	event connection.Event
}

// feedChangedMsg carries a new pagination window snapshot.
type feedChangedMsg struct {
	items   []memstore.ChatMessage
	focused *memstore.ChatMessage
}

// scrollOffsetMsg carries a scroll offset produced by the animation.
type scrollOffsetMsg struct {
	offset int
}

// animationFinishedMsg is sent when a scroll animation resolves or aborts.
type animationFinishedMsg struct {
	err error
}

// fetchErrorMsg carries a pagination failure.
type fetchErrorMsg struct {
	err error
}

// tickMsg is sent periodically for animations
type tickMsg time.Time

// connectCmd attempts to connect to the server
func connectCmd(connect func() error) tea.Cmd {
	return func() tea.Msg {
		if err := connect(); err != nil {
			return connectionErrorMsg{err: err}
		}
		return connectionSuccessMsg{}
	}
}

// listenForEventsCmd waits for the next connection event
func listenForEventsCmd(events <-chan connection.Event) tea.Cmd {
	return func() tea.Msg {
		return connectionEventMsg{event: <-events}
	}
}

// listenFeedCmd waits for the next pagination window change
func listenFeedCmd(updates <-chan feedChangedMsg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

// listenScrollCmd waits for the next animated scroll offset
func listenScrollCmd(offsets <-chan int) tea.Cmd {
	return func() tea.Msg {
		return scrollOffsetMsg{offset: <-offsets}
	}
}

// fetchCmd runs a pagination call off the update loop. Results arrive through
// the controller's change channel; only failures surface here.
func fetchCmd(fetch func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fetch(context.Background()); err != nil {
			return fetchErrorMsg{err: err}
		}
		return nil
	}
}

// animateCmd runs a scroll animation against a geometry snapshot. Offsets
// flow back through the view's channel; the message reports completion.
func animateCmd(anchor *feed.Anchor, view *feedView, key string, params feed.AnimationParams) tea.Cmd {
	return func() tea.Msg {
		err := anchor.Start(context.Background(), view, key, params)
		return animationFinishedMsg{err: err}
	}
}

// tickCmd returns a command that sends tick messages for animations
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
