package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yourusername/chatstream/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second    //time allowed to read the next pong message from client
	pingPeriod     = (pongWait * 9) / 10 //send pings to client with this period. must be less than pongWait
	maxMessageSize = 64 * 1024

	// maxSocketsPerUser caps concurrent connections per user; excess
	// connections are closed with a policy violation.
	maxSocketsPerUser = 10
)

var upgrader = websocket.Upgrader{ //upgrade HTTP connections to WebSocket connections
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client represents a WebSocket client connection.
type Client struct {
	ID   string
	info ConnectionInfo
	conn *websocket.Conn
	send chan []byte
}

// Info returns the connection's authentication info.
func (c *Client) Info() ConnectionInfo {
	return c.info
}

// Send queues data for delivery. A client whose send buffer is full is
// dropped rather than blocking the fan-out path.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("client %s send buffer full, dropping connection", c.ID)
		c.conn.Close()
	}
}

// Server accepts websocket connections and routes chat traffic between the
// external service and the room registry.
type Server struct {
	service Service
	rooms   *RoomManager
}

// NewServer creates a chat server over the given service.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
		rooms:   NewRoomManager(service.GetChatParticipants),
	}
}

// Rooms exposes the broadcast registry.
func (s *Server) Rooms() *RoomManager {
	return s.rooms
}

// Run starts background room maintenance until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.rooms.StartSweeper(ctx, time.Minute)
}

// HandleWebSocket authenticates and upgrades an HTTP request, then starts the
// connection's read and write pumps.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.FetchConnectionInfo(r)
	if err != nil {
		log.Printf("connection rejected: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	if s.rooms.SocketCount(info.UserID) >= maxSocketsPerUser {
		log.Printf("too many sockets for user %s", info.UserID)
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many open connections"),
			time.Now().Add(writeWait),
		)
		conn.Close()
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		info: info,
		conn: conn,
		send: make(chan []byte, 256),
	}

	s.rooms.HandleConnect(r.Context(), client)

	go client.writePump()
	go client.readPump(s)
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Client) readPump(s *Server) {
	defer func() {
		s.rooms.HandleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(s, message)
	}
}

// writePump pumps queued messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(s *Server, data []byte) {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		log.Printf("Error decoding message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.MsgSendMessage:
		var payload protocol.SendMessagePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling send message payload: %v", err)
			return
		}

		c.handleSendMessage(s, payload)

	case protocol.MsgObserveUser:
		var payload protocol.ObserveUserPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling observe user payload: %v", err)
			return
		}

		s.rooms.ObserveUser(c, payload.UserID)

	case protocol.MsgUnobserveUser:
		var payload protocol.ObserveUserPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("Error unmarshaling unobserve user payload: %v", err)
			return
		}

		s.rooms.UnobserveUser(c, payload.UserID)
	}
}

// handleSendMessage authorizes the sender, persists the message, and fans it
// out to the room. The sender gets a receiveError when either step fails.
func (c *Client) handleSendMessage(s *Server, payload protocol.SendMessagePayload) {
	ctx := context.Background()

	// Authorization comes first so a rejected sender leaves no trace in
	// the store.
	broadcast, err := s.rooms.Broadcast(ctx, c, payload.RoomID)
	if err != nil {
		log.Printf("broadcast to room %s denied: %v", payload.RoomID, err)
		c.sendReceiveError(payload.RoomID)
		return
	}

	saved, err := s.service.SaveMessage(ctx, c.info, payload.Message, payload.RoomID)
	if err != nil {
		log.Printf("failed to save message in room %s: %v", payload.RoomID, err)
		c.sendReceiveError(payload.RoomID)
		return
	}

	broadcast.Send(protocol.MsgReceiveMessage, protocol.ReceiveMessagePayload{
		RoomID:  payload.RoomID,
		Message: saved,
	})
}

func (c *Client) sendReceiveError(roomID string) {
	data, err := protocol.EncodeMessage(protocol.MsgReceiveError, protocol.ReceiveErrorPayload{RoomID: roomID})
	if err != nil {
		return
	}

	c.Send(data)
}
