package types

// MessageType defines the type of WebSocket message
type MessageType string

const (
	ConnectionStatus MessageType = "connection_status"
	Error            MessageType = "error"
	// Server pushed updates
	BalanceUpdate MessageType = "balance_update"
	MarketUpdate  MessageType = "market_update"
	ChatMessage   MessageType = "chat_message"
	ChatHistory   MessageType = "chat_history_response"
	ChatCleared   MessageType = "chat_cleared"
	// Balance control messages
	BalanceSelectFrame MessageType = "balance_select_frame"
	BalanceGetStatus   MessageType = "balance_get_status"
	// Chat control messages
	ChatSend        MessageType = "chat_send"
	ChatGetHistory  MessageType = "chat_history"
	MarketGetStatus MessageType = "market_get_status"
)

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data"`
}

// ConnectionStatusData represents connection status message data
type ConnectionStatusData struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ClientID  string `json:"clientId"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorData is the payload of error messages
type ErrorData struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ChatClearedData is broadcast when a coin's history is deleted
type ChatClearedData struct {
	CoinID  string `json:"coinId"`
	Deleted int64  `json:"deleted"`
}

// ChatHistoryData answers a chat_history request
type ChatHistoryData struct {
	CoinID   string      `json:"coinId"`
	Messages interface{} `json:"messages"`
}
