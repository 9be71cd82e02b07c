// Package arb implements the pure arbitrage math for multi-outcome hedges:
// pricing the two uniform strategies over an event's legs and normalizing the
// stake so every leg clears the exchange minimum. Nothing in this package
// performs I/O; given identical input it always produces identical output.
package arb

import (
	"github.com/alanyoungcy/eventarb/internal/domain"
)

// legPrice returns the executable per-share cost of market m under the given
// strategy side.
func legPrice(m domain.Market, side domain.BundleSide) float64 {
	if side == domain.BundleSideNo {
		return m.NoPrice
	}
	return m.YesPrice
}

// tradableLegs filters out legs whose price under side is not a positive
// number. A zero or negative price marks a malformed or untradeable market;
// including it would fabricate an infinite-profit hedge.
func tradableLegs(markets []domain.Market, side domain.BundleSide) []domain.Market {
	out := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if legPrice(m, side) > 0 {
			out = append(out, m)
		}
	}
	return out
}

// evaluateSide prices one uniform strategy: buy `side` on every leg with the
// same stake. For each resolution scenario (leg j wins) the payout is the sum
// over legs of stake where the held side matches that leg's winning outcome:
//
//	YES strategy: only the winning leg pays, so every scenario pays stake.
//	NO strategy:  every leg except the winner pays, so each scenario pays
//	              stake * (n-1).
//
// The worst case over scenarios is the guaranteed payout of the hedge.
func evaluateSide(markets []domain.Market, side domain.BundleSide, stakePerLeg float64) (domain.ArbitrageBundle, bool) {
	legs := tradableLegs(markets, side)
	if len(legs) < 2 {
		return domain.ArbitrageBundle{}, false
	}

	var cost float64
	for _, m := range legs {
		cost += stakePerLeg * legPrice(m, side)
	}

	minPayout := 0.0
	for j := range legs {
		payout := 0.0
		for i := range legs {
			winningSide := domain.BundleSideNo
			if i == j {
				winningSide = domain.BundleSideYes
			}
			if side == winningSide {
				payout += stakePerLeg
			}
		}
		if j == 0 || payout < minPayout {
			minPayout = payout
		}
	}

	worst := minPayout - cost
	return domain.ArbitrageBundle{
		Side:            side,
		Cost:            cost,
		MinPayout:       minPayout,
		WorstCaseProfit: worst,
		IsArbitrage:     worst > domain.ProfitEpsilon,
	}, true
}

// EvaluateStrategy prices a single uniform strategy at the given stake. The
// boolean is false when fewer than two legs are tradable under the side, in
// which case the hedge cannot be exhaustive and no bundle is produced.
func EvaluateStrategy(markets []domain.Market, side domain.BundleSide, stakePerLeg float64) (domain.ArbitrageBundle, bool) {
	if len(markets) < 2 || stakePerLeg <= 0 {
		return domain.ArbitrageBundle{}, false
	}
	return evaluateSide(markets, side, stakePerLeg)
}

// Evaluate computes the two uniform hedging strategies over the given markets
// at the given stake per leg and returns only the bundles that lock in a
// worst-case profit above the epsilon. Fewer than two tradable legs can never
// be exhaustive, so the result is empty.
func Evaluate(markets []domain.Market, stakePerLeg float64) []domain.ArbitrageBundle {
	if len(markets) < 2 || stakePerLeg <= 0 {
		return nil
	}

	var out []domain.ArbitrageBundle
	for _, side := range []domain.BundleSide{domain.BundleSideYes, domain.BundleSideNo} {
		bundle, ok := evaluateSide(markets, side, stakePerLeg)
		if ok && bundle.IsArbitrage {
			out = append(out, bundle)
		}
	}
	return out
}
