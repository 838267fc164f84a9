package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/options-journal/internal/middleware"
	"github.com/options-journal/internal/models"
	"github.com/options-journal/internal/service"
	"github.com/options-journal/pkg/response"
)

// streamInterval is how often the quote stream refreshes
const streamInterval = 30 * time.Second

// QuoteHandler handles stock quote API requests
type QuoteHandler struct {
	quoteService *service.QuoteService
	tradeService *service.TradeService
	upgrader     websocket.Upgrader
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quoteService *service.QuoteService, tradeService *service.TradeService) *QuoteHandler {
	return &QuoteHandler{
		quoteService: quoteService,
		tradeService: tradeService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Get returns the current quote for a symbol
// GET /api/quotes/:symbol
func (h *QuoteHandler) Get(c *gin.Context) {
	quote, err := h.quoteService.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		response.NotFound(c, "quote not found or rate limit exceeded")
		return
	}
	response.Success(c, quote)
}

// OpenTradeQuotes returns quotes for every open trade's ticker
// GET /api/quotes/trades/open
func (h *QuoteHandler) OpenTradeQuotes(c *gin.Context) {
	trades, err := h.tradeService.Feed(models.FilterOpen)
	if err != nil {
		response.InternalError(c, "failed to list open trades")
		return
	}

	symbols := make([]string, 0, len(trades))
	for _, t := range trades {
		symbols = append(symbols, t.Ticker)
	}

	quotes, err := h.quoteService.GetQuotesForSymbols(c.Request.Context(), symbols)
	if err != nil {
		response.InternalError(c, "failed to fetch quotes")
		return
	}
	response.Success(c, quotes)
}

// Stream pushes quote snapshots for open trades over a websocket.
// A snapshot is sent on connect and then every streamInterval.
// GET /api/quotes/stream
func (h *QuoteHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		middleware.LogError("quote stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		trades, err := h.tradeService.Feed(models.FilterOpen)
		if err != nil {
			middleware.LogError("quote stream: failed to list open trades: %v", err)
			return
		}
		symbols := make([]string, 0, len(trades))
		for _, t := range trades {
			symbols = append(symbols, t.Ticker)
		}

		quotes, err := h.quoteService.GetQuotesForSymbols(c.Request.Context(), symbols)
		if err != nil {
			middleware.LogError("quote stream: %v", err)
		}
		if err := conn.WriteJSON(quotes); err != nil {
			return
		}

		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// RegisterRoutes registers quote routes
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	{
		quotes.GET("/stream", h.Stream)
		quotes.GET("/trades/open", h.OpenTradeQuotes)
		quotes.GET("/:symbol", h.Get)
	}
}
