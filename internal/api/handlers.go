package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHome(c *gin.Context) {
	c.String(http.StatusOK, "Trading Bot API is live")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStart begins the scheduler loop; starting a running bot is a no-op.
func (s *Server) handleStart(c *gin.Context) {
	if s.controller.Start() {
		c.JSON(http.StatusOK, gin.H{"status": "Bot started"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Bot already running"})
}

// handleStop requests the scheduler to halt after its current cycle.
func (s *Server) handleStop(c *gin.Context) {
	s.controller.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "Bot stopping..."})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": s.controller.Running()})
}

// handleGetConfig returns the current trading parameters.
func (s *Server) handleGetConfig(c *gin.Context) {
	cfg := s.controller.Settings()
	c.JSON(http.StatusOK, gin.H{
		"symbols":       cfg.Symbols,
		"position_size": cfg.PositionSize,
		"stop_loss":     cfg.StopLossPercent,
		"take_profit":   cfg.TakeProfitPercent,
	})
}

func (s *Server) handleSetSymbols(c *gin.Context) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.controller.SetSymbols(req.Symbols)
	c.JSON(http.StatusOK, gin.H{"symbols": cfg.Symbols})
}

// handleSetStopLoss replaces the stop-loss fraction. Values are accepted
// without bounds checks; only malformed JSON is rejected.
func (s *Server) handleSetStopLoss(c *gin.Context) {
	var req struct {
		StopLoss *float64 `json:"stop_loss"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StopLoss == nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.controller.SetStopLoss(*req.StopLoss)
	c.JSON(http.StatusOK, gin.H{"stop_loss": cfg.StopLossPercent})
}

func (s *Server) handleSetTakeProfit(c *gin.Context) {
	var req struct {
		TakeProfit *float64 `json:"take_profit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TakeProfit == nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.controller.SetTakeProfit(*req.TakeProfit)
	c.JSON(http.StatusOK, gin.H{"take_profit": cfg.TakeProfitPercent})
}

func (s *Server) handleSetPositionSize(c *gin.Context) {
	var req struct {
		PositionSize *int `json:"position_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PositionSize == nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.controller.SetPositionSize(*req.PositionSize)
	c.JSON(http.StatusOK, gin.H{"position_size": cfg.PositionSize})
}

// handleGetLogs returns the most recent log entries, newest last. The count
// is capped at 50 by the controller.
func (s *Server) handleGetLogs(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries := s.controller.Logs(limit)
	logs := make([]string, len(entries))
	for i, e := range entries {
		logs[i] = e.String()
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// handleGetBalance is a passthrough to the broker account query. Gateway
// failures surface as a structured error response.
func (s *Server) handleGetBalance(c *gin.Context) {
	account, err := s.controller.Balance(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cash":            account.Cash,
		"portfolio_value": account.PortfolioValue,
	})
}
