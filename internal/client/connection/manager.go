package connection

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/chatstream/internal/protocol"
)

// Manager manages the WebSocket connection to the server
type Manager struct {
	serverURL string
	conn      *websocket.Conn
	presence  *Presence
	connected bool
	mu        sync.RWMutex
	done      chan struct{}

	callbacks  map[int]func(Event)
	callbackID int
}

// NewManager creates a new connection manager
func NewManager(serverURL string) *Manager {
	return &Manager{
		serverURL: serverURL,
		presence:  NewPresence(),
		connected: false,
		done:      make(chan struct{}),
		callbacks: make(map[int]func(Event)),
	}
}

// OnEvent registers a callback for connection events. The returned function
// removes the registration.
func (m *Manager) OnEvent(callback func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.callbackID
	m.callbackID++
	m.callbacks[id] = callback

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.callbacks, id)
	}
}

// Connect establishes a WebSocket connection to the server
func (m *Manager) Connect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(m.serverURL, nil)
	if err != nil {
		m.sendEvent(DisconnectedEvent{Error: err})
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.connected = true
	// Create a fresh done channel for this connection attempt
	// This allows reconnection to work properly
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.readPump()

	m.sendEvent(ConnectedEvent{})
	return nil
}

// Disconnect closes the WebSocket connection
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Only disconnect if we're currently connected
	if !m.connected {
		return
	}

	m.connected = false

	// Close done channel to signal readPump to stop
	if m.done != nil {
		select {
		case <-m.done:
			// Already closed
		default:
			close(m.done)
		}
	}

	if m.conn != nil {
		m.conn.Close()
	}
}

// IsConnected returns whether the manager is connected
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Presence returns the observed-user connectivity map.
func (m *Manager) Presence() *Presence {
	return m.presence
}

//// FROM CLIENT -> SERVER MESSAGES ////

// SendChatMessage sends a raw message body to a room.
func (m *Manager) SendChatMessage(roomID string, message json.RawMessage) error {
	return m.sendMessage(protocol.MsgSendMessage, protocol.SendMessagePayload{
		RoomID:  roomID,
		Message: message,
	})
}

// ObserveUser subscribes to a user's presence notifications.
func (m *Manager) ObserveUser(userID string) error {
	return m.sendMessage(protocol.MsgObserveUser, protocol.ObserveUserPayload{
		UserID: userID,
	})
}

// UnobserveUser cancels a presence subscription.
func (m *Manager) UnobserveUser(userID string) error {
	m.presence.Forget(userID)
	return m.sendMessage(protocol.MsgUnobserveUser, protocol.ObserveUserPayload{
		UserID: userID,
	})
}

////////////////////////////////////////////

// sendMessage sends a message to the server
func (m *Manager) sendMessage(msgType protocol.MessageType, payload interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected || m.conn == nil {
		return websocket.ErrCloseSent
	}

	msg, err := protocol.EncodeMessage(msgType, payload)
	if err != nil {
		return err
	}

	m.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return m.conn.WriteMessage(websocket.TextMessage, msg)
}

// readPump reads messages from the WebSocket connection
func (m *Manager) readPump() {
	defer func() {
		m.mu.Lock()
		m.connected = false
		if m.conn != nil {
			m.conn.Close()
		}
		m.mu.Unlock()
		m.sendEvent(DisconnectedEvent{})
	}()

	for {
		select {
		case <-m.done:
			return
		default:
			_, message, err := m.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				return
			}

			m.handleMessage(message)
		}
	}
}

// handleMessage processes incoming messages
func (m *Manager) handleMessage(data []byte) {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		log.Printf("Error decoding message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.MsgReceiveMessage:
		var payload protocol.ReceiveMessagePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling receive message: %v", err)
			return
		}
		m.sendEvent(MessageEvent{RoomID: payload.RoomID, Message: payload.Message})

	case protocol.MsgReceiveError:
		var payload protocol.ReceiveErrorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling receive error: %v", err)
			return
		}
		m.sendEvent(ReceiveErrorEvent{RoomID: payload.RoomID})

	case protocol.MsgUserConnected:
		var payload protocol.UserPresencePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling presence payload: %v", err)
			return
		}
		m.presence.SetOnline(payload.UserID, true)
		m.sendEvent(UserConnectedEvent{UserID: payload.UserID})

	case protocol.MsgUserDisconnected:
		var payload protocol.UserPresencePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling presence payload: %v", err)
			return
		}
		m.presence.SetOnline(payload.UserID, false)
		m.sendEvent(UserDisconnectedEvent{UserID: payload.UserID})

	case protocol.MsgError:
		var payload protocol.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling error payload: %v", err)
			return
		}
		m.sendEvent(ErrorEvent{Message: payload.Message})
		log.Printf("Server error: %s", payload.Message)

	default:
		log.Printf("Unhandled message type: %s", msg.Type)
	}
}

// sendEvent delivers an event to every registered callback.
func (m *Manager) sendEvent(event Event) {
	m.mu.RLock()
	callbacks := make([]func(Event), 0, len(m.callbacks))
	for _, callback := range m.callbacks {
		callbacks = append(callbacks, callback)
	}
	m.mu.RUnlock()

	for _, callback := range callbacks {
		callback(event)
	}
}
