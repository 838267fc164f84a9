package service_test

import (
	"strings"
	"testing"

	"github.com/options-journal/internal/models"
	"github.com/options-journal/internal/repository"
	"github.com/options-journal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPositionService() (*service.PositionService, *service.TradeService, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	trades := service.NewTradeService(store.Trades(), store.Comments(), stubQuotes{})
	return service.NewPositionService(store.Trades()), trades, store
}

func rollRequest() *service.RollRequest {
	req := spreadRequest()
	req.EntryPrice = 3.10
	req.EntryDate = "2025-12-19"
	for i := range req.Legs {
		req.Legs[i].Expiration = "2026-02-20"
	}
	return &service.RollRequest{
		TradeRequest:    *req,
		ParentExitPrice: fptr(6.50),
		ParentExitDate:  "2025-12-19",
	}
}

func TestEnsurePositionIDKeepsExisting(t *testing.T) {
	existing := "pos-aapl-1700000000000"
	trade := &models.Trade{Ticker: "AAPL", PositionID: &existing}
	assert.Equal(t, existing, service.EnsurePositionID(trade))
}

func TestEnsurePositionIDDerivesFromTicker(t *testing.T) {
	trade := &models.Trade{Ticker: "AAPL"}
	id := service.EnsurePositionID(trade)
	assert.True(t, strings.HasPrefix(id, "pos-aapl-"), "got %q", id)

	empty := ""
	trade.PositionID = &empty
	assert.True(t, strings.HasPrefix(service.EnsurePositionID(trade), "pos-aapl-"))
}

func TestRollClosesParentAndLinksSuccessor(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	parent, err := trades.CreateTrade(1, spreadRequest())
	require.NoError(t, err)

	result, err := positions.Roll(1, parent.ID, rollRequest())
	require.NoError(t, err)

	closed := result.ClosedParent
	assert.Equal(t, models.TradeStatusClosed, closed.Status)
	require.NotNil(t, closed.ExitPrice)
	assert.InDelta(t, 6.50, *closed.ExitPrice, 0.001)
	require.NotNil(t, closed.Pnl)
	assert.InDelta(t, 1800.0, *closed.Pnl, 0.001)
	require.NotNil(t, closed.ExitDate)
	assert.Equal(t, "2025-12-19", *closed.ExitDate)

	successor := result.NewTrade
	assert.Equal(t, models.AdjustmentRoll, successor.AdjustmentType)
	require.NotNil(t, successor.ParentTradeID)
	assert.Equal(t, parent.ID, *successor.ParentTradeID)

	// Both sides carry the same chain id, backfilled onto the parent.
	require.NotNil(t, closed.PositionID)
	require.NotNil(t, successor.PositionID)
	assert.Equal(t, *closed.PositionID, *successor.PositionID)
	assert.True(t, strings.HasPrefix(*closed.PositionID, "pos-aapl-"))
}

func TestRollInheritsSharedVisibility(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	req := spreadRequest()
	req.Shared = true
	parent, err := trades.CreateTrade(1, req)
	require.NoError(t, err)

	// The successor request does not ask for sharing.
	result, err := positions.Roll(1, parent.ID, rollRequest())
	require.NoError(t, err)
	assert.True(t, result.NewTrade.Shared)
}

func TestRollOwnerOnly(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	parent, err := trades.CreateTrade(1, spreadRequest())
	require.NoError(t, err)

	_, err = positions.Roll(2, parent.ID, rollRequest())
	assert.ErrorIs(t, err, service.ErrNotTradeOwner)
}

func TestRollRequiresOpenParent(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	parent, err := trades.CreateTrade(1, closedSpreadRequest())
	require.NoError(t, err)

	_, err = positions.Roll(1, parent.ID, rollRequest())
	assert.ErrorIs(t, err, service.ErrCannotRollClosed)
}

func TestRollRequiresParentExitPrice(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	parent, err := trades.CreateTrade(1, spreadRequest())
	require.NoError(t, err)

	req := rollRequest()
	req.ParentExitPrice = nil
	_, err = positions.Roll(1, parent.ID, req)
	assert.ErrorIs(t, err, service.ErrParentExitPriceRequired)
}

func TestFailedSuccessorValidationLeavesParentOpen(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	parent, err := trades.CreateTrade(1, spreadRequest())
	require.NoError(t, err)

	req := rollRequest()
	req.Strategy = "NOT_A_STRATEGY"
	_, err = positions.Roll(1, parent.ID, req)
	assert.ErrorIs(t, err, service.ErrInvalidStrategy)

	got, err := trades.GetTrade(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusOpen, got.Status)
	assert.Nil(t, got.ExitPrice)
}

func TestRollTwiceFails(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	parent, err := trades.CreateTrade(1, spreadRequest())
	require.NoError(t, err)

	_, err = positions.Roll(1, parent.ID, rollRequest())
	require.NoError(t, err)

	_, err = positions.Roll(1, parent.ID, rollRequest())
	assert.ErrorIs(t, err, service.ErrCannotRollClosed)
}

func TestRollGuardRejectsClosedParentAtCommit(t *testing.T) {
	// Drive the repository directly to exercise the commit-time status
	// check that protects against concurrent rolls.
	store := repository.NewMemoryStore()
	repo := store.Trades()

	parent := &models.Trade{
		ID:       "t-parent",
		UserID:   1,
		Ticker:   "AAPL",
		Strategy: models.StrategyBullCallSpread,
		Status:   models.TradeStatusClosed,
		Quantity: 5,
	}
	require.NoError(t, repo.Create(parent))

	successor := &models.Trade{ID: "t-child", UserID: 1, Ticker: "AAPL"}
	err := repo.Roll("t-parent", repository.ClosePatch{ExitPrice: 6.50}, successor)
	assert.ErrorIs(t, err, repository.ErrTradeNotOpen)

	// The successor must not have been created.
	_, err = repo.GetByID("t-child")
	assert.ErrorIs(t, err, repository.ErrTradeNotFound)
}

func TestChainReturnsOldestFirst(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	parent, err := trades.CreateTrade(1, spreadRequest())
	require.NoError(t, err)

	result, err := positions.Roll(1, parent.ID, rollRequest())
	require.NoError(t, err)
	positionID := *result.NewTrade.PositionID

	chain, err := positions.Chain(positionID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, parent.ID, chain[0].ID)
	assert.Equal(t, result.NewTrade.ID, chain[1].ID)
}

func TestOpenPositions(t *testing.T) {
	positions, trades, _ := newTestPositionService()

	open, err := trades.CreateTrade(1, spreadRequest())
	require.NoError(t, err)
	_, err = trades.CreateTrade(1, closedSpreadRequest())
	require.NoError(t, err)
	_, err = trades.CreateTrade(2, spreadRequest())
	require.NoError(t, err)

	mine, err := positions.OpenPositions(1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, open.ID, mine[0].ID)
}
