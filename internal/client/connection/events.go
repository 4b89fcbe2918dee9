package connection

import "encoding/json"

// Event represents events from the connection manager
type Event interface {
	isEvent()
}

// ConnectedEvent is sent when connection is established
type ConnectedEvent struct{}

func (ConnectedEvent) isEvent() {}

// DisconnectedEvent is sent when connection is lost
type DisconnectedEvent struct {
	Error error
}

func (DisconnectedEvent) isEvent() {}

// MessageEvent carries a chat message broadcast to one of the user's rooms.
// The body stays opaque until the ChatClient decodes it.
type MessageEvent struct {
	RoomID  string
	Message json.RawMessage
}

func (MessageEvent) isEvent() {}

// ReceiveErrorEvent is sent when the server failed to deliver a message the
// user sent to a room.
type ReceiveErrorEvent struct {
	RoomID string
}

func (ReceiveErrorEvent) isEvent() {}

// UserConnectedEvent is sent when an observed user comes online.
type UserConnectedEvent struct {
	UserID string
}

func (UserConnectedEvent) isEvent() {}

// UserDisconnectedEvent is sent when an observed user goes offline.
type UserDisconnectedEvent struct {
	UserID string
}

func (UserDisconnectedEvent) isEvent() {}

// ErrorEvent is sent when the server reports a protocol-level error
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) isEvent() {}
