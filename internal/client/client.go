package client

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/yourusername/chatstream/internal/client/connection"
	"github.com/yourusername/chatstream/internal/feed"
)

// Codec converts between the application's message type and the opaque JSON
// bodies the transport carries.
type Codec[T any] struct {
	Encode func(T) (json.RawMessage, error)
	Decode func(json.RawMessage) (T, error)
}

// JSONCodec builds a codec over encoding/json for message types that marshal
// directly.
func JSONCodec[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(msg T) (json.RawMessage, error) {
			return json.Marshal(msg)
		},
		Decode: func(raw json.RawMessage) (T, error) {
			var msg T
			err := json.Unmarshal(raw, &msg)
			return msg, err
		},
	}
}

// ChatClient combines the live websocket connection with the pagination API.
// It satisfies feed.MessageSource so a feed.Controller can paginate through it
// while live arrivals flow in via OnMessage.
type ChatClient[T any] struct {
	manager *connection.Manager
	api     feed.MessageSource[T]
	codec   Codec[T]
}

// NewChatClient wires a connection manager, a history API and a codec into a
// chat client.
func NewChatClient[T any](manager *connection.Manager, api feed.MessageSource[T], codec Codec[T]) *ChatClient[T] {
	return &ChatClient[T]{
		manager: manager,
		api:     api,
		codec:   codec,
	}
}

// Connect dials the server.
func (c *ChatClient[T]) Connect() error {
	return c.manager.Connect()
}

// Close tears the connection down.
func (c *ChatClient[T]) Close() {
	c.manager.Disconnect()
}

// FetchMessages delegates to the history API.
func (c *ChatClient[T]) FetchMessages(ctx context.Context, roomID string, count int, before, after *T) (feed.FetchResult[T], error) {
	return c.api.FetchMessages(ctx, roomID, count, before, after)
}

// SearchMessages delegates to the history API.
func (c *ChatClient[T]) SearchMessages(ctx context.Context, roomID string, criteria string) (feed.SearchResult[T], error) {
	return c.api.SearchMessages(ctx, roomID, criteria)
}

// SendMessage encodes and sends a message to a room.
func (c *ChatClient[T]) SendMessage(roomID string, message T) error {
	raw, err := c.codec.Encode(message)
	if err != nil {
		return errors.Wrap(err, "encode outgoing message")
	}

	return c.manager.SendChatMessage(roomID, raw)
}

// OnMessage registers a callback for live messages in any of the user's
// rooms. Bodies that fail to decode are skipped. The returned function removes
// the registration.
func (c *ChatClient[T]) OnMessage(callback func(roomID string, message T)) (unsubscribe func()) {
	return c.manager.OnEvent(func(event connection.Event) {
		msgEvent, ok := event.(connection.MessageEvent)
		if !ok {
			return
		}

		message, err := c.codec.Decode(msgEvent.Message)
		if err != nil {
			return
		}

		callback(msgEvent.RoomID, message)
	})
}

// OnReceiveError registers a callback for delivery failures of the user's own
// messages.
func (c *ChatClient[T]) OnReceiveError(callback func(roomID string)) (unsubscribe func()) {
	return c.manager.OnEvent(func(event connection.Event) {
		if errEvent, ok := event.(connection.ReceiveErrorEvent); ok {
			callback(errEvent.RoomID)
		}
	})
}

// ObserveUser subscribes to a user's presence. The callback fires on every
// connectivity change, including the server's immediate echo of the current
// state. The returned function cancels the subscription.
func (c *ChatClient[T]) ObserveUser(userID string, callback func(online bool)) (unsubscribe func(), err error) {
	remove := c.manager.OnEvent(func(event connection.Event) {
		switch presence := event.(type) {
		case connection.UserConnectedEvent:
			if presence.UserID == userID {
				callback(true)
			}
		case connection.UserDisconnectedEvent:
			if presence.UserID == userID {
				callback(false)
			}
		}
	})

	if err := c.manager.ObserveUser(userID); err != nil {
		remove()
		return nil, err
	}

	return func() {
		remove()
		c.manager.UnobserveUser(userID)
	}, nil
}

// IsUserOnline reports the last observed connectivity of a user.
func (c *ChatClient[T]) IsUserOnline(userID string) bool {
	return c.manager.Presence().IsOnline(userID)
}
