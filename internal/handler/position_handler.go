package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/options-journal/internal/middleware"
	"github.com/options-journal/internal/service"
	"github.com/options-journal/pkg/response"
)

// PositionHandler handles position-chain API requests
type PositionHandler struct {
	positionService *service.PositionService
}

// NewPositionHandler creates a new PositionHandler
func NewPositionHandler(positionService *service.PositionService) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
	}
}

// Roll closes an open trade and creates its successor in one unit
// POST /api/trades/:id/roll
func (h *PositionHandler) Roll(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.RollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.positionService.Roll(userID, c.Param("id"), &req)
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Created(c, result)
}

// OpenPositions returns the caller's open trades (roll candidates)
// GET /api/positions/open
func (h *PositionHandler) OpenPositions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	trades, err := h.positionService.OpenPositions(userID)
	if err != nil {
		response.InternalError(c, "failed to list positions")
		return
	}
	response.Success(c, trades)
}

// Chain returns all trades in a position chain, oldest first
// GET /api/positions/:positionId/trades
func (h *PositionHandler) Chain(c *gin.Context) {
	trades, err := h.positionService.Chain(c.Param("positionId"))
	if err != nil {
		response.InternalError(c, "failed to list position trades")
		return
	}
	response.Success(c, trades)
}

// RegisterRoutes registers position routes
func (h *PositionHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	rg.POST("/trades/:id/roll", authMiddleware, middleware.MutationLoggerMiddleware(), h.Roll)

	positions := rg.Group("/positions")
	{
		positions.GET("/open", authMiddleware, h.OpenPositions)
		positions.GET("/:positionId/trades", h.Chain)
	}
}
