package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/options-journal/internal/middleware"
	"github.com/options-journal/internal/models"
	"github.com/options-journal/internal/repository"
	"github.com/options-journal/internal/service"
	"github.com/options-journal/pkg/response"
)

// TradeHandler handles trade journal API requests
type TradeHandler struct {
	tradeService *service.TradeService
}

// NewTradeHandler creates a new TradeHandler
func NewTradeHandler(tradeService *service.TradeService) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
	}
}

// feedFilter extracts the ?filter= query parameter, defaulting to all
func feedFilter(c *gin.Context) models.FeedFilter {
	switch f := models.FeedFilter(c.Query("filter")); f {
	case models.FilterOpen, models.FilterClosed, models.FilterWinners, models.FilterLosers:
		return f
	default:
		return models.FilterAll
	}
}

// handleTradeError translates service errors to HTTP responses
func handleTradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrTradeNotFound):
		response.NotFound(c, "trade not found")
	case errors.Is(err, service.ErrNotTradeOwner):
		response.Forbidden(c, "not authorized")
	case errors.Is(err, service.ErrQuoteUnavailable):
		response.ServiceUnavailable(c, "failed to fetch stock price")
	case errors.Is(err, service.ErrInvalidTicker),
		errors.Is(err, service.ErrInvalidStrategy),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrNoLegs),
		errors.Is(err, service.ErrExitDateRequired),
		errors.Is(err, service.ErrTradeNotClosed),
		errors.Is(err, service.ErrNoOptionLegs),
		errors.Is(err, service.ErrInvalidComment),
		errors.Is(err, service.ErrParentExitPriceRequired),
		errors.Is(err, service.ErrCannotRollClosed),
		errors.Is(err, repository.ErrTradeNotOpen):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}

// List returns all trades with an optional filter
// GET /api/trades?filter=
func (h *TradeHandler) List(c *gin.Context) {
	trades, err := h.tradeService.Feed(feedFilter(c))
	if err != nil {
		response.InternalError(c, "failed to list trades")
		return
	}
	response.Success(c, trades)
}

// ListShared returns the community feed of shared trades
// GET /api/trades/shared?filter=
func (h *TradeHandler) ListShared(c *gin.Context) {
	trades, err := h.tradeService.SharedFeed(feedFilter(c))
	if err != nil {
		response.InternalError(c, "failed to list trades")
		return
	}
	response.Success(c, trades)
}

// ListMine returns the caller's trades (personal journal)
// GET /api/trades/mine?filter=
func (h *TradeHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	trades, err := h.tradeService.UserTrades(userID, feedFilter(c))
	if err != nil {
		response.InternalError(c, "failed to list trades")
		return
	}
	response.Success(c, trades)
}

// ListExpired returns trades awaiting expiration valuation
// GET /api/trades/expired
func (h *TradeHandler) ListExpired(c *gin.Context) {
	trades, err := h.tradeService.ExpiredTrades()
	if err != nil {
		response.InternalError(c, "failed to list trades")
		return
	}
	response.Success(c, trades)
}

// Get returns a single trade
// GET /api/trades/:id
func (h *TradeHandler) Get(c *gin.Context) {
	trade, err := h.tradeService.GetTrade(c.Param("id"))
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Success(c, trade)
}

// Create creates a new trade for the caller
// POST /api/trades
func (h *TradeHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.tradeService.CreateTrade(userID, &req)
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Created(c, trade)
}

// Update replaces an existing trade; owner only
// PUT /api/trades/:id
func (h *TradeHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.tradeService.UpdateTrade(userID, c.Param("id"), &req)
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Success(c, trade)
}

// Delete removes a trade and its comments; owner only
// DELETE /api/trades/:id
func (h *TradeHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.tradeService.DeleteTrade(userID, c.Param("id")); err != nil {
		handleTradeError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ToggleShare flips a trade's visibility; owner only
// POST /api/trades/:id/share
func (h *TradeHandler) ToggleShare(c *gin.Context) {
	userID := middleware.GetUserID(c)
	shared, err := h.tradeService.ToggleShare(userID, c.Param("id"))
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Success(c, gin.H{"shared": shared})
}

// ToggleLike flips the caller's like on a trade
// POST /api/trades/:id/like
func (h *TradeHandler) ToggleLike(c *gin.Context) {
	userID := middleware.GetUserID(c)
	liked, err := h.tradeService.ToggleLike(userID, c.Param("id"))
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Success(c, gin.H{"liked": liked})
}

// ListComments returns a trade's comments
// GET /api/trades/:id/comments
func (h *TradeHandler) ListComments(c *gin.Context) {
	comments, err := h.tradeService.Comments(c.Param("id"))
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Success(c, comments)
}

// CreateComment adds a comment to a trade
// POST /api/trades/:id/comments
func (h *TradeHandler) CreateComment(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.tradeService.AddComment(userID, c.Param("id"), req.Content)
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Created(c, comment)
}

// CalculateExpiration values a closed trade at expiration
// POST /api/trades/:id/calculate-expiration
func (h *TradeHandler) CalculateExpiration(c *gin.Context) {
	trade, err := h.tradeService.CalculateExpiration(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleTradeError(c, err)
		return
	}
	response.Success(c, trade)
}

// Stats returns dashboard statistics, optionally scoped by ?userId=
// GET /api/stats
func (h *TradeHandler) Stats(c *gin.Context) {
	var userID *uint
	if v := c.Query("userId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid userId")
			return
		}
		uid := uint(id)
		userID = &uid
	}

	stats, err := h.tradeService.Stats(userID)
	if err != nil {
		response.InternalError(c, "failed to compute stats")
		return
	}
	response.Success(c, stats)
}

// RegisterRoutes registers trade routes
func (h *TradeHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	mutationLogger := middleware.MutationLoggerMiddleware()

	trades := rg.Group("/trades")
	{
		trades.GET("", h.List)
		trades.GET("/shared", h.ListShared)
		trades.GET("/mine", authMiddleware, h.ListMine)
		trades.GET("/expired", h.ListExpired)
		trades.GET("/:id", h.Get)
		trades.POST("", authMiddleware, mutationLogger, h.Create)
		trades.PUT("/:id", authMiddleware, mutationLogger, h.Update)
		trades.DELETE("/:id", authMiddleware, mutationLogger, h.Delete)
		trades.POST("/:id/share", authMiddleware, h.ToggleShare)
		trades.POST("/:id/like", authMiddleware, h.ToggleLike)
		trades.GET("/:id/comments", h.ListComments)
		trades.POST("/:id/comments", authMiddleware, h.CreateComment)
		trades.POST("/:id/calculate-expiration", h.CalculateExpiration)
	}

	rg.GET("/stats", h.Stats)
}
