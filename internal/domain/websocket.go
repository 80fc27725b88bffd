package domain

import (
	"context"

	"github.com/coder/websocket"
)

// ManagedConnection is a live event-stream connection.
type ManagedConnection interface {
	// Close closes the connection with a status code and reason.
	Close(statusCode websocket.StatusCode, reason string) error

	// WriteJSON queues a JSON-encoded message for the client.
	WriteJSON(v interface{}) error

	// RemoteAddr returns the remote network address string of the client.
	RemoteAddr() string

	// Context is cancelled when the connection ends and carries request_id/user_id for logging.
	Context() context.Context

	// WorkspaceID is the workspace whose events this connection receives.
	WorkspaceID() string
}
