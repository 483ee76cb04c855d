package handlers

import (
	"errors"
	"net/http"

	"cryptodash/internal/models"

	"github.com/gin-gonic/gin"
)

// BalanceController is the part of the balance engine the handlers drive
type BalanceController interface {
	Snapshot() models.BalanceUpdate
	SelectFrameSnapshot(label string) (models.BalanceUpdate, error)
}

type BalanceHandler struct {
	engine BalanceController
}

func NewBalanceHandler(engine BalanceController) *BalanceHandler {
	return &BalanceHandler{
		engine: engine,
	}
}

type SetTimeframeRequest struct {
	Timeframe string `json:"timeframe" binding:"required"`
}

// GET /api/v1/balance
func (bh *BalanceHandler) GetBalance(c *gin.Context) {
	c.JSON(http.StatusOK, bh.engine.Snapshot())
}

// POST /api/v1/balance/timeframe
func (bh *BalanceHandler) SetTimeframe(c *gin.Context) {
	var req SetTimeframeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := bh.engine.SelectFrameSnapshot(req.Timeframe)
	if err != nil {
		if errors.Is(err, models.ErrInvalidFrame) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, update)
}

// GET /api/v1/balance/timeframes
func (bh *BalanceHandler) GetTimeframes(c *gin.Context) {
	frames := models.AllTimeFrames()
	infos := make([]models.TimeFrameInfo, 0, len(frames))
	for _, tf := range frames {
		infos = append(infos, tf.Info())
	}

	c.JSON(http.StatusOK, gin.H{
		"timeframes": infos,
		"default":    models.DefaultTimeFrame,
	})
}

// RegisterBalanceRoutes registers all balance routes
func RegisterBalanceRoutes(router *gin.RouterGroup, handler *BalanceHandler) {
	balance := router.Group("/balance")
	{
		balance.GET("", handler.GetBalance)
		balance.POST("/timeframe", handler.SetTimeframe)
		balance.GET("/timeframes", handler.GetTimeframes)
	}
}
