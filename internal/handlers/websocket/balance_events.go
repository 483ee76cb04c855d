package websocket

import (
	"encoding/json"

	"cryptodash/internal/models"
	"cryptodash/internal/types"
)

// BalanceSelectFrameData is the payload of balance_select_frame
type BalanceSelectFrameData struct {
	Timeframe string `json:"timeframe"`
}

// BalanceController is the part of the balance engine clients drive
type BalanceController interface {
	Snapshot() models.BalanceUpdate
	SelectFrame(label string) error
}

// BalanceEventHandlerImpl handles balance-related WebSocket events
type BalanceEventHandlerImpl struct {
	engine BalanceController
}

// NewBalanceEventHandler creates a new balance event handler
func NewBalanceEventHandler(engine BalanceController) *BalanceEventHandlerImpl {
	return &BalanceEventHandlerImpl{engine: engine}
}

// HandleMessage handles balance control messages
func (h *BalanceEventHandlerImpl) HandleMessage(client *Client, message types.WebSocketMessage) error {
	switch message.Type {
	case types.BalanceSelectFrame:
		return h.handleSelectFrame(client, message.Data)
	case types.BalanceGetStatus:
		client.SendMessage(types.BalanceUpdate, h.engine.Snapshot())
		return nil
	default:
		client.SendError("Unknown balance message", string(message.Type))
		return nil
	}
}

// handleSelectFrame switches the frame; the engine's renderer broadcasts the reset window
func (h *BalanceEventHandlerImpl) handleSelectFrame(client *Client, data interface{}) error {
	var frameData BalanceSelectFrameData
	if err := decodeData(data, &frameData); err != nil {
		client.SendError("Invalid timeframe data", err.Error())
		return nil
	}

	if err := h.engine.SelectFrame(frameData.Timeframe); err != nil {
		client.SendError("Failed to select timeframe", err.Error())
		return err
	}
	return nil
}

// decodeData re-decodes a generic message payload into a typed struct
func decodeData(data interface{}, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
