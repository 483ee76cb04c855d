package handlers

import (
	"context"
	"net/http"

	"cryptodash/internal/models"

	"github.com/gin-gonic/gin"
)

// MarketProvider is the part of the market data service the handlers use
type MarketProvider interface {
	Snapshot() models.MarketSnapshot
	Coin(id string) (models.Coin, bool)
	Refresh(ctx context.Context) error
}

type MarketHandler struct {
	market MarketProvider
}

func NewMarketHandler(market MarketProvider) *MarketHandler {
	return &MarketHandler{
		market: market,
	}
}

// GET /api/v1/market/coins
func (h *MarketHandler) GetCoins(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.Snapshot())
}

// GET /api/v1/market/coins/:id
func (h *MarketHandler) GetCoin(c *gin.Context) {
	coin, ok := h.market.Coin(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "coin not found"})
		return
	}
	c.JSON(http.StatusOK, coin)
}

// POST /api/v1/market/refresh
func (h *MarketHandler) Refresh(c *gin.Context) {
	if err := h.market.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "failed to refresh market data: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, h.market.Snapshot())
}

// RegisterMarketRoutes registers all market routes
func RegisterMarketRoutes(router *gin.RouterGroup, handler *MarketHandler) {
	market := router.Group("/market")
	{
		market.GET("/coins", handler.GetCoins)
		market.GET("/coins/:id", handler.GetCoin)
		market.POST("/refresh", handler.Refresh)
	}
}
