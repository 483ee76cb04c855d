package interfaces

import "cryptodash/internal/types"

// Publisher broadcasts a message to every connected dashboard.
// Services depend on it instead of the websocket package to avoid import cycles.
type Publisher interface {
	Publish(msgType types.MessageType, data interface{})
}

// NopPublisher drops every message
type NopPublisher struct{}

func (NopPublisher) Publish(types.MessageType, interface{}) {}
