package websocket

import (
	"cryptodash/internal/models"
	"cryptodash/internal/types"
)

// MarketSnapshotter is the part of the market data service clients read
type MarketSnapshotter interface {
	Snapshot() models.MarketSnapshot
}

// MarketEventHandlerImpl answers market status requests
type MarketEventHandlerImpl struct {
	market MarketSnapshotter
}

// NewMarketEventHandler creates a new market event handler
func NewMarketEventHandler(market MarketSnapshotter) *MarketEventHandlerImpl {
	return &MarketEventHandlerImpl{market: market}
}

// HandleMessage sends the cached coin list to the requesting client
func (h *MarketEventHandlerImpl) HandleMessage(client *Client, message types.WebSocketMessage) error {
	client.SendMessage(types.MarketUpdate, h.market.Snapshot())
	return nil
}
