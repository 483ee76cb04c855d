package websocket

import (
	"context"
	"time"

	"cryptodash/internal/services/chat"
	"cryptodash/internal/types"
)

const chatRequestTimeout = 5 * time.Second

// ChatSendData is the payload of chat_send
type ChatSendData struct {
	CoinID string `json:"coinId"`
	Author string `json:"author"`
	Body   string `json:"body"`
}

// ChatHistoryRequestData is the payload of chat_history
type ChatHistoryRequestData struct {
	CoinID string `json:"coinId"`
	Limit  int    `json:"limit"`
}

// ChatEventHandlerImpl handles chat-related WebSocket events
type ChatEventHandlerImpl struct {
	chatService *chat.ChatService
}

// NewChatEventHandler creates a new chat event handler
func NewChatEventHandler(chatService *chat.ChatService) *ChatEventHandlerImpl {
	return &ChatEventHandlerImpl{chatService: chatService}
}

// HandleMessage handles chat messages
func (h *ChatEventHandlerImpl) HandleMessage(client *Client, message types.WebSocketMessage) error {
	switch message.Type {
	case types.ChatSend:
		return h.handleSend(client, message.Data)
	case types.ChatGetHistory:
		return h.handleHistory(client, message.Data)
	default:
		client.SendError("Unknown chat message", string(message.Type))
		return nil
	}
}

// handleSend stores the message; the chat service broadcasts it to every client
func (h *ChatEventHandlerImpl) handleSend(client *Client, data interface{}) error {
	var sendData ChatSendData
	if err := decodeData(data, &sendData); err != nil {
		client.SendError("Invalid chat data", err.Error())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatRequestTimeout)
	defer cancel()

	if _, err := h.chatService.Send(ctx, sendData.CoinID, sendData.Author, sendData.Body); err != nil {
		client.SendError("Failed to send chat message", err.Error())
		return err
	}
	return nil
}

// handleHistory answers the requesting client only
func (h *ChatEventHandlerImpl) handleHistory(client *Client, data interface{}) error {
	var req ChatHistoryRequestData
	if err := decodeData(data, &req); err != nil {
		client.SendError("Invalid chat history request", err.Error())
		return nil
	}

	coinID, err := chat.NormalizeCoin(req.CoinID)
	if err != nil {
		client.SendError("Failed to load chat history", err.Error())
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatRequestTimeout)
	defer cancel()

	messages, err := h.chatService.History(ctx, coinID, req.Limit)
	if err != nil {
		client.SendError("Failed to load chat history", err.Error())
		return err
	}

	client.SendMessage(types.ChatHistory, types.ChatHistoryData{
		CoinID:   coinID,
		Messages: messages,
	})
	return nil
}
