package handlers

import (
	"errors"
	"net/http"

	"cryptodash/internal/services/chat"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService *chat.ChatService
}

func NewChatHandler(chatService *chat.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

type SendChatRequest struct {
	Author string `json:"author"`
	Body   string `json:"body" binding:"required"`
}

// GET /api/v1/chat
func (ch *ChatHandler) GetCoins(c *gin.Context) {
	coins, err := ch.chatService.Coins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coins": coins,
		"count": len(coins),
	})
}

// GET /api/v1/chat/:coin
func (ch *ChatHandler) GetHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}

	coinID, err := chat.NormalizeCoin(c.Param("coin"))
	if err != nil {
		ch.writeError(c, err)
		return
	}

	messages, err := ch.chatService.History(c.Request.Context(), coinID, limit)
	if err != nil {
		ch.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coinId":   coinID,
		"messages": messages,
		"count":    len(messages),
	})
}

// POST /api/v1/chat/:coin
func (ch *ChatHandler) SendMessage(c *gin.Context) {
	var req SendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := ch.chatService.Send(c.Request.Context(), c.Param("coin"), req.Author, req.Body)
	if err != nil {
		ch.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// DELETE /api/v1/chat/:coin
func (ch *ChatHandler) ClearHistory(c *gin.Context) {
	deleted, err := ch.chatService.Clear(c.Request.Context(), c.Param("coin"))
	if err != nil {
		ch.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "chat history cleared",
		"deleted": deleted,
	})
}

func (ch *ChatHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, chat.ErrInvalidCoin) || errors.Is(err, chat.ErrInvalidMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// RegisterChatRoutes registers all chat routes
func RegisterChatRoutes(router *gin.RouterGroup, handler *ChatHandler) {
	chatRoutes := router.Group("/chat")
	{
		chatRoutes.GET("", handler.GetCoins)
		chatRoutes.GET("/:coin", handler.GetHistory)
		chatRoutes.POST("/:coin", handler.SendMessage)
		chatRoutes.DELETE("/:coin", handler.ClearHistory)
	}
}
