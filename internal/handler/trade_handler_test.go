package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/options-journal/internal/handler"
	"github.com/options-journal/internal/middleware"
	"github.com/options-journal/internal/models"
	"github.com/options-journal/internal/repository"
	"github.com/options-journal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authAs bypasses JWT validation and injects a fixed caller identity
func authAs(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyUsername, "tester")
		c.Next()
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(userID uint) *gin.Engine {
	store := repository.NewMemoryStore()
	tradeService := service.NewTradeService(store.Trades(), store.Comments(), nil)
	positionService := service.NewPositionService(store.Trades())

	router := gin.New()
	api := router.Group("/api")
	handler.NewTradeHandler(tradeService).RegisterRoutes(api, authAs(userID))
	handler.NewPositionHandler(positionService).RegisterRoutes(api, authAs(userID))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func tradeBody() map[string]interface{} {
	return map[string]interface{}{
		"ticker":   "AAPL",
		"strategy": "BULL_CALL_SPREAD",
		"status":   "OPEN",
		"legs": []map[string]interface{}{
			{"type": "CALL", "action": "BUY", "strike": 180, "expiration": "2026-01-16", "quantity": 5},
			{"type": "CALL", "action": "SELL", "strike": 190, "expiration": "2026-01-16", "quantity": 5},
		},
		"entryPrice": 2.90,
		"quantity":   5,
		"entryDate":  "2025-11-03",
	}
}

func createTrade(t *testing.T, router *gin.Engine) models.Trade {
	t.Helper()

	w, env := doJSON(t, router, http.MethodPost, "/api/trades", tradeBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var trade models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &trade))
	return trade
}

func TestCreateAndGetTrade(t *testing.T) {
	router := newTestRouter(1)

	trade := createTrade(t, router)
	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, "AAPL", trade.Ticker)

	w, env := doJSON(t, router, http.MethodGet, "/api/trades/"+trade.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)

	var got models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, trade.ID, got.ID)
	assert.Len(t, got.Legs, 2)
}

func TestGetTradeNotFound(t *testing.T) {
	router := newTestRouter(1)

	w, env := doJSON(t, router, http.MethodGet, "/api/trades/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, -1003, env.Code)
}

func TestCreateTradeRejectsBadPayload(t *testing.T) {
	router := newTestRouter(1)

	body := tradeBody()
	delete(body, "ticker")
	w, _ := doJSON(t, router, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = tradeBody()
	body["strategy"] = "YOLO"
	w, _ = doJSON(t, router, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTradesWithFilter(t *testing.T) {
	router := newTestRouter(1)
	createTrade(t, router)

	closed := tradeBody()
	closed["status"] = "CLOSED"
	closed["exitPrice"] = 6.50
	closed["exitDate"] = "2025-12-19"
	w, _ := doJSON(t, router, http.MethodPost, "/api/trades", closed)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := doJSON(t, router, http.MethodGet, "/api/trades?filter=winners", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var trades []models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, models.TradeStatusClosed, trades[0].Status)
}

func TestUpdateTradeForbiddenForNonOwner(t *testing.T) {
	store := repository.NewMemoryStore()
	tradeService := service.NewTradeService(store.Trades(), store.Comments(), nil)

	owner := gin.New()
	api := owner.Group("/api")
	handler.NewTradeHandler(tradeService).RegisterRoutes(api, authAs(1))

	intruder := gin.New()
	api2 := intruder.Group("/api")
	handler.NewTradeHandler(tradeService).RegisterRoutes(api2, authAs(2))

	trade := createTrade(t, owner)

	w, env := doJSON(t, intruder, http.MethodPut, "/api/trades/"+trade.ID, tradeBody())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, -1002, env.Code)
}

func TestShareAndLikeToggles(t *testing.T) {
	router := newTestRouter(1)
	trade := createTrade(t, router)

	w, env := doJSON(t, router, http.MethodPost, "/api/trades/"+trade.ID+"/share", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"shared":true}`, string(env.Data))

	w, env = doJSON(t, router, http.MethodPost, "/api/trades/"+trade.ID+"/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":true}`, string(env.Data))

	w, env = doJSON(t, router, http.MethodPost, "/api/trades/"+trade.ID+"/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":false}`, string(env.Data))
}

func TestCommentFlow(t *testing.T) {
	router := newTestRouter(1)
	trade := createTrade(t, router)

	w, _ := doJSON(t, router, http.MethodPost, "/api/trades/"+trade.ID+"/comments",
		map[string]string{"content": "solid entry"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := doJSON(t, router, http.MethodGet, "/api/trades/"+trade.ID+"/comments", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var comments []models.Comment
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "solid entry", comments[0].Content)

	w, env = doJSON(t, router, http.MethodGet, "/api/trades/"+trade.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 1, got.CommentCount)
}

func TestRollEndpoint(t *testing.T) {
	router := newTestRouter(1)
	trade := createTrade(t, router)

	body := tradeBody()
	body["parentExitPrice"] = 6.50
	body["parentExitDate"] = "2025-12-19"
	body["entryDate"] = "2025-12-19"

	w, env := doJSON(t, router, http.MethodPost, "/api/trades/"+trade.ID+"/roll", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result service.RollResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.ClosedParent)
	require.NotNil(t, result.NewTrade)
	assert.Equal(t, models.TradeStatusClosed, result.ClosedParent.Status)
	assert.Equal(t, models.AdjustmentRoll, result.NewTrade.AdjustmentType)

	// A second roll of the same parent is rejected.
	w, _ = doJSON(t, router, http.MethodPost, "/api/trades/"+trade.ID+"/roll", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPositionChainEndpoint(t *testing.T) {
	router := newTestRouter(1)
	trade := createTrade(t, router)

	body := tradeBody()
	body["parentExitPrice"] = 6.50
	w, env := doJSON(t, router, http.MethodPost, "/api/trades/"+trade.ID+"/roll", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var result service.RollResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotNil(t, result.NewTrade.PositionID)

	w, env = doJSON(t, router, http.MethodGet, "/api/positions/"+*result.NewTrade.PositionID+"/trades", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var chain []models.Trade
	require.NoError(t, json.Unmarshal(env.Data, &chain))
	require.Len(t, chain, 2)
	assert.Equal(t, trade.ID, chain[0].ID)
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestRouter(1)
	createTrade(t, router)

	closed := tradeBody()
	closed["status"] = "CLOSED"
	closed["exitPrice"] = 6.50
	closed["exitDate"] = "2025-12-19"
	w, _ := doJSON(t, router, http.MethodPost, "/api/trades", closed)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := doJSON(t, router, http.MethodGet, "/api/stats?userId=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.UserStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.OpenTrades)
	assert.Equal(t, 1, stats.ClosedTrades)
	assert.InDelta(t, 100.0, stats.WinRate, 0.001)

	w, _ = doJSON(t, router, http.MethodGet, "/api/stats?userId=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
