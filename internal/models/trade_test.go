package models_test

import (
	"testing"

	"github.com/options-journal/internal/models"
	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestStrategyMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, models.StrategyStock.Multiplier())
	assert.Equal(t, 100.0, models.StrategyBullCallSpread.Multiplier())
	assert.Equal(t, 100.0, models.StrategyIronCondor.Multiplier())
}

func TestStrategyValid(t *testing.T) {
	assert.True(t, models.StrategyLongCall.Valid())
	assert.True(t, models.StrategyProtectivePut.Valid())
	assert.False(t, models.StrategyType("WHEEL_OF_FORTUNE").Valid())
	assert.False(t, models.StrategyType("").Valid())
}

func TestStrategyExpectedLegs(t *testing.T) {
	assert.Equal(t, 1, models.StrategyLongCall.ExpectedLegs())
	assert.Equal(t, 4, models.StrategyIronCondor.ExpectedLegs())
	assert.Equal(t, 0, models.StrategyType("UNKNOWN").ExpectedLegs())
}

func TestIsWinnerAndLoser(t *testing.T) {
	open := &models.Trade{}
	assert.False(t, open.IsWinner())
	assert.False(t, open.IsLoser())

	winner := &models.Trade{Pnl: fptr(1800)}
	assert.True(t, winner.IsWinner())
	assert.False(t, winner.IsLoser())

	loser := &models.Trade{Pnl: fptr(-950)}
	assert.False(t, loser.IsWinner())
	assert.True(t, loser.IsLoser())

	breakeven := &models.Trade{Pnl: fptr(0)}
	assert.False(t, breakeven.IsWinner())
	assert.False(t, breakeven.IsLoser())
}

func TestHasExpiredOptionLeg(t *testing.T) {
	trade := &models.Trade{
		Legs: models.Legs{
			{Type: models.LegTypeStock, Action: models.LegActionBuy, Quantity: 100},
			{Type: models.LegTypeCall, Action: models.LegActionSell, Strike: fptr(60), Expiration: "2026-02-20", Quantity: 1},
		},
	}

	assert.False(t, trade.HasExpiredOptionLeg("2026-02-19"))
	assert.True(t, trade.HasExpiredOptionLeg("2026-02-20"))
	assert.True(t, trade.HasExpiredOptionLeg("2026-03-01"))

	// Stock legs and undated option legs never expire.
	undated := &models.Trade{
		Legs: models.Legs{
			{Type: models.LegTypeStock, Action: models.LegActionBuy, Quantity: 100},
			{Type: models.LegTypePut, Action: models.LegActionBuy, Strike: fptr(50), Quantity: 1},
		},
	}
	assert.False(t, undated.HasExpiredOptionLeg("2099-01-01"))
}

func TestUserIDListContains(t *testing.T) {
	likes := models.UserIDList{1, 5, 9}
	assert.True(t, likes.Contains(5))
	assert.False(t, likes.Contains(2))
	assert.False(t, models.UserIDList(nil).Contains(1))
}

func TestLegsRoundTripThroughJSONB(t *testing.T) {
	legs := models.Legs{
		{Type: models.LegTypeCall, Action: models.LegActionBuy, Strike: fptr(180), Expiration: "2026-01-16", Quantity: 5, Premium: fptr(2.90)},
	}

	value, err := legs.Value()
	assert.NoError(t, err)

	var decoded models.Legs
	assert.NoError(t, decoded.Scan([]byte(value.(string))))
	assert.Equal(t, legs, decoded)

	// Nil slices persist as an empty array, not SQL NULL.
	empty, err := models.Legs(nil).Value()
	assert.NoError(t, err)
	assert.Equal(t, "[]", empty)
}
