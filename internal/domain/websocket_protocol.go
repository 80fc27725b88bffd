package domain

import (
	"github.com/coder/websocket"
)

// Message types of the json.v1 event-stream subprotocol.
const (
	MessageTypeReady = "ready"
	MessageTypeEvent = "event"
	MessageTypeError = "error"

	StatusGoingAway websocket.StatusCode = 1001 // Standard code for server going away
)

// BaseMessage is the envelope of every server-to-client message.
type BaseMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewReadyMessage is sent once right after the upgrade.
func NewReadyMessage() BaseMessage {
	return BaseMessage{
		Type: MessageTypeReady,
	}
}

// NewEventMessage wraps a ChangeEvent.
func NewEventMessage(event ChangeEvent) BaseMessage {
	return BaseMessage{
		Type:    MessageTypeEvent,
		Payload: event,
	}
}

// NewErrorMessage creates a new message of type "error".
func NewErrorMessage(errResp ErrorResponse) BaseMessage {
	return BaseMessage{
		Type:    MessageTypeError,
		Payload: errResp,
	}
}
