package arb

import (
	"math"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// NormalizeShares computes the uniform per-leg stake for a hedge over the
// given markets under the given side. The exchange enforces a minimum
// notional per order, so the stake is scaled until even the cheapest leg's
// order reaches one notional unit, rounded up to cents, and never below
// orderMinSize. The same share count must be used on every leg or the payout
// invariant of the hedge breaks.
func NormalizeShares(markets []domain.Market, side domain.BundleSide, orderMinSize float64) float64 {
	minPrice := 0.0
	for _, m := range markets {
		p := legPrice(m, side)
		if p <= 0 {
			continue
		}
		if minPrice == 0 || p < minPrice {
			minPrice = p
		}
	}
	if minPrice <= 0 {
		return orderMinSize
	}

	// Smallest stake such that stake * minPrice >= 1 notional unit, rounded
	// up to 2 decimal places.
	stake := math.Ceil(100/minPrice) / 100
	return math.Max(orderMinSize, stake)
}
