package protocol //handles communication protocol between client and server
// WebSocket message types and payloads
import "encoding/json"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client -> Server
	MsgSendMessage   MessageType = "send_message"
	MsgObserveUser   MessageType = "observe_user"
	MsgUnobserveUser MessageType = "unobserve_user"

	// Server -> Client
	MsgReceiveMessage   MessageType = "receive_message"
	MsgReceiveError     MessageType = "receive_error"
	MsgUserConnected    MessageType = "user_connected"
	MsgUserDisconnected MessageType = "user_disconnected"
	MsgError            MessageType = "error"
)

// Message is the wrapper for all WebSocket messages
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SendMessagePayload carries an outgoing chat message. The message body is
// opaque to the transport; only the backing service interprets it.
type SendMessagePayload struct {
	RoomID  string          `json:"room_id"`
	Message json.RawMessage `json:"message"`
}

// ReceiveMessagePayload carries a fanned-out chat message to a client.
type ReceiveMessagePayload struct {
	RoomID  string          `json:"room_id"`
	Message json.RawMessage `json:"message"`
}

// ReceiveErrorPayload notifies the sender that their message was not delivered.
type ReceiveErrorPayload struct {
	RoomID string `json:"room_id"`
}

// ObserveUserPayload subscribes/unsubscribes the connection to presence
// notifications for a user.
type ObserveUserPayload struct {
	UserID string `json:"user_id"`
}

// UserPresencePayload is sent when an observed user connects or disconnects.
type UserPresencePayload struct {
	UserID string `json:"user_id"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeMessage encodes a message with its payload
func EncodeMessage(msgType MessageType, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	msg := Message{
		Type:    msgType,
		Payload: payloadBytes,
	}

	return json.Marshal(msg)
}

// DecodeMessage decodes a message
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
