package websocket

import (
	"net/http"

	"cryptodash/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebSocketHandler upgrades connections and wires each client to the event handlers
type WebSocketHandler struct {
	hub            *Hub
	balanceHandler *BalanceEventHandlerImpl
	chatHandler    *ChatEventHandlerImpl
	marketHandler  *MarketEventHandlerImpl
	logger         *zap.Logger
}

// NewWebSocketHandler creates a new WebSocket handler around a running hub
func NewWebSocketHandler(hub *Hub, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// SetHandlers sets the event handlers for balance, chat and market events
func (wh *WebSocketHandler) SetHandlers(balance *BalanceEventHandlerImpl, chat *ChatEventHandlerImpl, market *MarketEventHandlerImpl) {
	wh.balanceHandler = balance
	wh.chatHandler = chat
	wh.marketHandler = market
}

// HandleWebSocket upgrades the HTTP connection. The client first receives
// connection_status, then the current balance and market snapshots, and only
// then joins the broadcast set.
func (wh *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Warn("WebSocket upgrade error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := NewClient(conn, wh.hub, wh.logger)
	if wh.balanceHandler != nil {
		client.BalanceHandler = wh.balanceHandler
	}
	if wh.chatHandler != nil {
		client.ChatHandler = wh.chatHandler
	}
	if wh.marketHandler != nil {
		client.MarketHandler = wh.marketHandler
	}

	client.SendMessage(types.ConnectionStatus, types.ConnectionStatusData{
		Status:    "connected",
		Message:   "Successfully connected to WebSocket",
		ClientID:  client.ID,
		Timestamp: GetCurrentTimestamp(),
	})
	if wh.balanceHandler != nil {
		client.SendMessage(types.BalanceUpdate, wh.balanceHandler.engine.Snapshot())
	}
	if wh.marketHandler != nil {
		client.SendMessage(types.MarketUpdate, wh.marketHandler.market.Snapshot())
	}

	wh.hub.RegisterClient(client)
	client.Start()
}

// GetHub returns the WebSocket hub for broadcasting messages
func (wh *WebSocketHandler) GetHub() *Hub {
	return wh.hub
}
