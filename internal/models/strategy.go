package models

// StrategyType identifies an options strategy
type StrategyType string

const (
	StrategyLongCall        StrategyType = "LONG_CALL"
	StrategyLongPut         StrategyType = "LONG_PUT"
	StrategyStock           StrategyType = "STOCK"
	StrategyBullCallSpread  StrategyType = "BULL_CALL_SPREAD"
	StrategyBearCallSpread  StrategyType = "BEAR_CALL_SPREAD"
	StrategyBullPutSpread   StrategyType = "BULL_PUT_SPREAD"
	StrategyBearPutSpread   StrategyType = "BEAR_PUT_SPREAD"
	StrategyIronCondor      StrategyType = "IRON_CONDOR"
	StrategyIronButterfly   StrategyType = "IRON_BUTTERFLY"
	StrategyLongStraddle    StrategyType = "LONG_STRADDLE"
	StrategyLongStrangle    StrategyType = "LONG_STRANGLE"
	StrategyCalendarSpread  StrategyType = "CALENDAR_SPREAD"
	StrategyDiagonalSpread  StrategyType = "DIAGONAL_SPREAD"
	StrategyButterflySpread StrategyType = "BUTTERFLY_SPREAD"
	StrategyCoveredCall     StrategyType = "COVERED_CALL"
	StrategyProtectivePut   StrategyType = "PROTECTIVE_PUT"
)

// StrategyInfo holds display metadata for a strategy
type StrategyInfo struct {
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
	Legs     int    `json:"legs"`
	Category string `json:"category"`
}

// Strategies is the static strategy catalog. Legs is the expected leg
// count for the strategy; it is advisory, not enforced at write time.
var Strategies = map[StrategyType]StrategyInfo{
	StrategyLongCall:        {Name: "Long Call", Emoji: "📈", Legs: 1, Category: "simple"},
	StrategyLongPut:         {Name: "Long Put", Emoji: "📉", Legs: 1, Category: "simple"},
	StrategyStock:           {Name: "Stock", Emoji: "💰", Legs: 1, Category: "simple"},
	StrategyBullCallSpread:  {Name: "Bull Call Spread", Emoji: "🐂", Legs: 2, Category: "vertical"},
	StrategyBearCallSpread:  {Name: "Bear Call Spread", Emoji: "🐻", Legs: 2, Category: "vertical"},
	StrategyBullPutSpread:   {Name: "Bull Put Spread", Emoji: "🐂", Legs: 2, Category: "vertical"},
	StrategyBearPutSpread:   {Name: "Bear Put Spread", Emoji: "🐻", Legs: 2, Category: "vertical"},
	StrategyIronCondor:      {Name: "Iron Condor", Emoji: "🦅", Legs: 4, Category: "advanced"},
	StrategyIronButterfly:   {Name: "Iron Butterfly", Emoji: "🦋", Legs: 4, Category: "advanced"},
	StrategyLongStraddle:    {Name: "Long Straddle", Emoji: "💥", Legs: 2, Category: "advanced"},
	StrategyLongStrangle:    {Name: "Long Strangle", Emoji: "⚡", Legs: 2, Category: "advanced"},
	StrategyCalendarSpread:  {Name: "Calendar Spread", Emoji: "📅", Legs: 2, Category: "advanced"},
	StrategyDiagonalSpread:  {Name: "Diagonal Spread", Emoji: "📐", Legs: 2, Category: "advanced"},
	StrategyButterflySpread: {Name: "Butterfly Spread", Emoji: "🦋", Legs: 3, Category: "advanced"},
	StrategyCoveredCall:     {Name: "Covered Call", Emoji: "☂️", Legs: 2, Category: "advanced"},
	StrategyProtectivePut:   {Name: "Protective Put", Emoji: "🛡️", Legs: 2, Category: "advanced"},
}

// Valid reports whether the strategy exists in the catalog
func (s StrategyType) Valid() bool {
	_, ok := Strategies[s]
	return ok
}

// Multiplier returns the contract multiplier for realized P&L:
// 1 per share for stock positions, 100 shares per contract otherwise.
func (s StrategyType) Multiplier() float64 {
	if s == StrategyStock {
		return 1
	}
	return 100
}

// ExpectedLegs returns the catalog leg count, or 0 for unknown strategies
func (s StrategyType) ExpectedLegs() int {
	return Strategies[s].Legs
}
