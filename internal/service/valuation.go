package service

import (
	"errors"
	"math"

	"github.com/options-journal/internal/models"
)

// ErrNoOptionLegs is returned when expiration valuation is requested
// for a trade without any option legs carrying an expiration date.
var ErrNoOptionLegs = errors.New("no option legs found with expiration dates")

// RealizedPnL computes the realized profit/loss for a closed trade.
// Stock positions use a multiplier of 1 per share; every options
// strategy uses the 100-shares-per-contract convention. A zero cost
// basis yields a 0 percent return, never NaN or Inf.
func RealizedPnL(entryPrice, exitPrice float64, quantity int, strategy models.StrategyType) (pnl, pnlPercent float64) {
	multiplier := strategy.Multiplier()
	cost := entryPrice * float64(quantity) * multiplier
	proceeds := exitPrice * float64(quantity) * multiplier

	pnl = proceeds - cost
	if cost > 0 {
		pnlPercent = pnl / cost * 100
	}
	return pnl, pnlPercent
}

// TheoreticalExpirationValue computes the per-unit value the position
// would have carried at expiration, given the underlying price. Only
// intrinsic value is modeled: no time value, no volatility.
//
// Each option leg with an expiration contributes its intrinsic value
// (long legs positive, short legs negative) weighted by leg quantity;
// the sum is normalized by the first qualifying leg's quantity. The
// normalization assumes all legs share a common per-unit quantity
// ratio, which holds for the catalog strategies.
func TheoreticalExpirationValue(trade *models.Trade, underlyingPrice float64) (float64, error) {
	optionLegs := make([]models.TradeLeg, 0, len(trade.Legs))
	for _, leg := range trade.Legs {
		if leg.Type == models.LegTypeStock || leg.Expiration == "" {
			continue
		}
		optionLegs = append(optionLegs, leg)
	}
	if len(optionLegs) == 0 {
		return 0, ErrNoOptionLegs
	}

	var theoreticalValue float64
	for _, leg := range optionLegs {
		if leg.Strike == nil {
			continue
		}

		var intrinsic float64
		if leg.Type == models.LegTypeCall {
			intrinsic = math.Max(0, underlyingPrice-*leg.Strike)
		} else {
			intrinsic = math.Max(0, *leg.Strike-underlyingPrice)
		}

		legValue := intrinsic
		if leg.Action == models.LegActionSell {
			legValue = -intrinsic
		}

		qty := leg.Quantity
		if qty == 0 {
			qty = 1
		}
		theoreticalValue += legValue * float64(qty)
	}

	normQty := optionLegs[0].Quantity
	if normQty == 0 {
		normQty = 1
	}
	return theoreticalValue / float64(normQty), nil
}

// MissedPnL computes the P&L difference between holding to expiration
// and the actual early exit. Positive means profit was left on the
// table; negative means the early exit avoided a larger loss. The
// options multiplier is fixed at 100 here regardless of strategy.
func MissedPnL(theoreticalValue, exitPrice float64, quantity int) float64 {
	return (theoreticalValue - exitPrice) * float64(quantity) * 100
}
