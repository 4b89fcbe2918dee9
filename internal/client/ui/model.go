package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/yourusername/chatstream/internal/client"
	"github.com/yourusername/chatstream/internal/client/connection"
	"github.com/yourusername/chatstream/internal/feed"
	"github.com/yourusername/chatstream/internal/memstore"
)

// ViewState represents the current view in the TUI
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewChat
)

// inputMode selects what the text input drives.
type inputMode int

const (
	modeMessage inputMode = iota
	modeSearch
)

// Model is the main Bubble Tea model
type Model struct {
	viewState ViewState

	chatClient *client.ChatClient[memstore.ChatMessage]
	controller *feed.Controller[memstore.ChatMessage]
	reconciler *feed.Reconciler[memstore.ChatMessage]
	tracker    *feed.Tracker
	anchor     *feed.Anchor

	roomID     string
	selfUserID string

	viewport viewport.Model
	input    textinput.Model
	mode     inputMode

	eventChan  chan connection.Event // Channel for connection events
	feedChan   chan feedChangedMsg   // Channel for pagination window changes
	scrollChan chan int              // Channel for animated scroll offsets

	rendered feed.RenderList[memstore.ChatMessage]
	extents  []itemExtent
	observed map[string]struct{}

	width  int
	height int
	err    error
	status string

	// Loading screen
	loadingDots      int
	reconnectAttempt int
	maxReconnects    int
	waitingToRetry   bool
}

// retryMsg signals that the retry delay elapsed.
type retryMsg struct{}

// NewModel creates a new Bubble Tea model wired to a chat server and a
// message history API.
func NewModel(serverURL, roomID, selfUserID string, api feed.MessageSource[memstore.ChatMessage]) *Model {
	// Create ONE connection manager that will be reused for the entire session
	manager := connection.NewManager(serverURL)
	chatClient := client.NewChatClient(manager, api, client.JSONCodec[memstore.ChatMessage]())

	eventChan := make(chan connection.Event, 10)
	feedChan := make(chan feedChangedMsg, 10)
	scrollChan := make(chan int, 10)

	manager.OnEvent(func(event connection.Event) {
		eventChan <- event
	})

	controller := feed.NewController(feed.ControllerConfig[memstore.ChatMessage]{
		Source:              chatClient,
		RoomID:              roomID,
		GetKey:              memstore.MessageKey,
		Compare:             memstore.CompareMessages,
		InitialChunkSize:    30,
		AdditionalChunkSize: 20,
		MaxChunkSize:        100,
		OnChange: func(items []memstore.ChatMessage, focused *memstore.ChatMessage) {
			feedChan <- feedChangedMsg{items: items, focused: focused}
		},
	})

	// Live arrivals feed straight into the pagination window; the resulting
	// change lands on feedChan like any other mutation.
	chatClient.OnMessage(func(roomID string, message memstore.ChatMessage) {
		controller.Apply(roomID, message)
	})

	tracker := feed.NewTracker()

	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = 512
	input.Focus()

	return &Model{
		viewState:     ViewLoading,
		chatClient:    chatClient,
		controller:    controller,
		reconciler:    feed.NewReconciler(memstore.MessageKey, memstore.CompareMessages, tracker.VisibleKeys),
		tracker:       tracker,
		anchor:        feed.NewAnchor(),
		roomID:        roomID,
		selfUserID:    selfUserID,
		viewport:      viewport.New(80, 20),
		input:         input,
		eventChan:     eventChan,
		feedChan:      feedChan,
		scrollChan:    scrollChan,
		observed:      make(map[string]struct{}),
		width:         80,
		height:        24,
		maxReconnects: 5,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		connectCmd(m.chatClient.Connect),
		tickCmd(),
		listenForEventsCmd(m.eventChan),
		listenFeedCmd(m.feedChan),
		listenScrollCmd(m.scrollChan),
	)
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6
		m.input.Width = msg.Width - 8
		m.syncViewport(false)
		return m, nil

	case tea.KeyMsg:
		switch m.viewState {
		case ViewLoading:
			return m.updateLoading(msg)
		case ViewChat:
			return m.updateChat(msg)
		}

	case connectionSuccessMsg:
		m.reconnectAttempt = 0
		m.waitingToRetry = false
		m.err = nil
		m.viewState = ViewChat
		return m, fetchCmd(m.controller.Load)

	case connectionErrorMsg:
		m.err = msg.err
		m.reconnectAttempt++
		if m.reconnectAttempt < m.maxReconnects {
			m.waitingToRetry = true
			return m, tea.Batch(
				tickCmd(),
				tea.Tick(2*time.Second, func(time.Time) tea.Msg { return retryMsg{} }),
			)
		}
		m.waitingToRetry = false
		return m, nil

	case retryMsg:
		if m.viewState == ViewLoading && m.reconnectAttempt < m.maxReconnects {
			m.waitingToRetry = false
			return m, connectCmd(m.chatClient.Connect)
		}
		return m, nil

	case connectionEventMsg:
		return m.handleConnectionEvent(msg.event)

	case feedChangedMsg:
		return m.handleFeedChange(msg)

	case scrollOffsetMsg:
		m.viewport.SetYOffset(msg.offset)
		m.updateVisibility()
		return m, listenScrollCmd(m.scrollChan)

	case animationFinishedMsg:
		return m.handleAnimationFinished(msg.err)

	case fetchErrorMsg:
		m.status = "fetch failed: " + msg.err.Error()
		return m, nil

	case tickMsg:
		if m.viewState == ViewLoading {
			m.loadingDots = (m.loadingDots + 1) % 4
			return m, tickCmd()
		}
		return m, nil
	}

	return m, nil
}

// View renders the current view
func (m *Model) View() string {
	switch m.viewState {
	case ViewLoading:
		return m.viewLoading()
	case ViewChat:
		return m.viewChat()
	}
	return ""
}

// Disconnect safely closes the connection.
func (m *Model) Disconnect() {
	m.chatClient.Close()
}

// edgeFetchCmd triggers pagination when the viewport rests on an edge. The
// controller's in-flight guards make repeated triggers harmless.
func (m *Model) edgeFetchCmd() tea.Cmd {
	switch {
	case m.viewport.AtTop():
		return fetchCmd(m.controller.TopReached)
	case m.viewport.AtBottom():
		return fetchCmd(m.controller.BottomReached)
	default:
		return nil
	}
}

func (m *Model) handleFeedChange(msg feedChangedMsg) (tea.Model, tea.Cmd) {
	focusedKey := ""
	if msg.focused != nil {
		focusedKey = memstore.MessageKey(*msg.focused)
	}

	wasAtBottom := m.viewport.AtBottom()

	m.rendered = m.reconciler.Reconcile(msg.items, focusedKey)
	m.syncViewport(wasAtBottom && focusedKey == "")

	cmds := []tea.Cmd{listenFeedCmd(m.feedChan)}
	if focusedKey != "" {
		cmds = append(cmds, m.startFocusAnimation(focusedKey))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAnimationFinished(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, feed.ErrSuperseded) {
		// A newer animation or a manual scroll took over; the superseded
		// jump must not settle.
		return m, nil
	}
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	m.rendered = m.reconciler.Settle()
	m.syncViewport(false)
	return m, nil
}

// startFocusAnimation snapshots the viewport geometry and animates the scroll
// offset so the focused message ends up centered.
func (m *Model) startFocusAnimation(key string) tea.Cmd {
	view := &feedView{
		scrollTop:     m.viewport.YOffset,
		viewHeight:    m.viewport.Height,
		contentHeight: lipgloss.Height(m.content()),
		extents:       m.extents,
		setOffset: func(offset int) {
			m.scrollChan <- offset
		},
	}

	params := feed.AnimationParams{
		Easing: func(t float64) float64 {
			if t < 0.5 {
				return 2 * t * t
			}
			return 1 - 2*(1-t)*(1-t)
		},
		Duration: func(distance float64) time.Duration {
			d := time.Duration(distance*8) * time.Millisecond
			return clampDuration(d, 120*time.Millisecond, 600*time.Millisecond)
		},
	}

	return animateCmd(m.anchor, view, key, params)
}

// syncViewport re-renders the feed into the viewport and refreshes the
// visibility bookkeeping. stickToBottom pins the view to the newest message,
// used when a live arrival lands while the tail is on screen.
func (m *Model) syncViewport(stickToBottom bool) {
	content := m.content()
	m.viewport.SetContent(content)
	if stickToBottom {
		m.viewport.GotoBottom()
	}
	m.updateVisibility()
}

func (m *Model) content() string {
	content, extents := renderFeed(m.rendered, m.selfUserID, m.viewport.Width)
	m.extents = extents
	return content
}

// updateVisibility reconciles the tracker's observed set with the rendered
// items and recomputes which of them overlap the viewport.
func (m *Model) updateVisibility() {
	current := make(map[string]struct{}, len(m.extents))
	for _, extent := range m.extents {
		current[extent.key] = struct{}{}
		if _, ok := m.observed[extent.key]; !ok {
			m.tracker.Observe(extent.key)
		}
	}
	for key := range m.observed {
		if _, ok := current[key]; !ok {
			m.tracker.Unobserve(key)
		}
	}
	m.observed = current

	top := m.viewport.YOffset
	bottom := top + m.viewport.Height
	for _, extent := range m.extents {
		visible := extent.top < bottom && extent.top+extent.height > top
		m.tracker.SetVisible(extent.key, visible)
	}

	m.controller.OnFrameChange(m.visibleFrame())
}

// visibleFrame maps the visible keys onto the pagination window. Placeholder
// rows are rendered but have no logical index, so a visible placeholder never
// becomes a bound.
func (m *Model) visibleFrame() feed.Frame {
	items := m.controller.Messages()
	return m.tracker.VisibleFrame(len(items), func(i int) string {
		return memstore.MessageKey(items[i])
	})
}

// Add new event handlers below when you add new event types in connection/events.go
func (m *Model) handleConnectionEvent(event connection.Event) (tea.Model, tea.Cmd) {
	switch e := event.(type) {
	case connection.ConnectedEvent:
		return m, listenForEventsCmd(m.eventChan)

	case connection.DisconnectedEvent:
		// Lost connection - go back to loading screen
		m.viewState = ViewLoading
		m.err = e.Error
		return m, listenForEventsCmd(m.eventChan)

	case connection.ReceiveErrorEvent:
		m.status = "message not delivered to " + e.RoomID
		return m, listenForEventsCmd(m.eventChan)

	case connection.ErrorEvent:
		m.status = e.Message
		return m, listenForEventsCmd(m.eventChan)

	default:
		// Presence and message events are handled by the chat client
		return m, listenForEventsCmd(m.eventChan)
	}
}

func clampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
