package server

import (
	"context"
	"encoding/json"
	"net/http"
)

// ConnectionInfo identifies an authenticated connection. FetchConnectionInfo
// populates it once per websocket upgrade.
type ConnectionInfo struct {
	UserID string
	// Meta carries service-specific connection attributes untouched by the
	// transport.
	Meta map[string]string
}

// Service is the external persistence and authentication collaborator. The
// transport never interprets message bodies; it hands them to the service and
// fans out whatever the service returns.
type Service interface {
	// FetchConnectionInfo authenticates an incoming connection. Returning an
	// error rejects the upgrade.
	FetchConnectionInfo(r *http.Request) (ConnectionInfo, error)

	// GetChatParticipants returns the user identifiers participating in a
	// room.
	GetChatParticipants(ctx context.Context, info ConnectionInfo, roomID string) ([]string, error)

	// SaveMessage persists a message before fan-out. The returned body is
	// what participants receive; the service may transform or stamp it.
	SaveMessage(ctx context.Context, info ConnectionInfo, message json.RawMessage, roomID string) (json.RawMessage, error)
}
