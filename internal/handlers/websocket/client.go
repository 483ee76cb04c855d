package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"cryptodash/internal/types"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// WebSocket upgrader with CORS settings
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from a different origin in development
		return true
	},
}

// EventHandler handles one family of client messages
type EventHandler interface {
	HandleMessage(client *Client, message types.WebSocketMessage) error
}

// Client is one dashboard connection
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
	ID   string

	BalanceHandler EventHandler
	ChatHandler    EventHandler
	MarketHandler  EventHandler

	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Hub:    hub,
		ID:     id,
		logger: logger.With(zap.String("clientId", id)),
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			break
		}

		c.logger.Debug("Received message", zap.ByteString("message", message))
		c.handleMessage(message)
	}
}

// writePump handles writing messages and keep-alive pings to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WebSocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// handleMessage routes messages to appropriate handlers based on message type
func (c *Client) handleMessage(messageBytes []byte) {
	var message types.WebSocketMessage
	if err := json.Unmarshal(messageBytes, &message); err != nil {
		c.SendError("Invalid message format", err.Error())
		return
	}

	var handler EventHandler
	switch message.Type {
	case types.BalanceSelectFrame, types.BalanceGetStatus:
		handler = c.BalanceHandler
	case types.ChatSend, types.ChatGetHistory:
		handler = c.ChatHandler
	case types.MarketGetStatus:
		handler = c.MarketHandler
	default:
		c.logger.Warn("Unknown message type", zap.String("type", string(message.Type)))
		c.SendError("Unknown message type", string(message.Type))
		return
	}

	if handler == nil {
		c.SendError("Handler not available", string(message.Type))
		return
	}
	if err := handler.HandleMessage(c, message); err != nil {
		c.logger.Error("Event handler error", zap.String("type", string(message.Type)), zap.Error(err))
	}
}

// SendError sends an error response to the client
func (c *Client) SendError(message, errorMsg string) {
	c.SendMessage(types.Error, types.ErrorData{
		Success: false,
		Message: message,
		Error:   errorMsg,
	})
}

// SendMessage sends a typed message to this client only
func (c *Client) SendMessage(msgType types.MessageType, data interface{}) {
	payload, err := json.Marshal(types.WebSocketMessage{Type: msgType, Data: data})
	if err != nil {
		c.logger.Error("Error marshaling message", zap.Error(err))
		return
	}

	if !c.trySend(payload) {
		c.logger.Warn("Send channel full or closed, dropping message", zap.String("type", string(msgType)))
	}
}

// trySend queues payload without blocking
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// close closes Send once; the write pump then sends a close frame
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
