package arb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

func mkt(id string, yes, no float64) domain.Market {
	return domain.Market{ID: id, YesPrice: yes, NoPrice: no, Active: true}
}

func TestEvaluateYesStrategy(t *testing.T) {
	// Legs A(yes=0.30), B(yes=0.45), C(yes=0.20), stake=10:
	// cost=9.50, minPayout=10, worstCaseProfit=0.50.
	markets := []domain.Market{
		mkt("a", 0.30, 0.72),
		mkt("b", 0.45, 0.57),
		mkt("c", 0.20, 0.82),
	}

	bundles := Evaluate(markets, 10)
	require.Len(t, bundles, 1)

	b := bundles[0]
	assert.Equal(t, domain.BundleSideYes, b.Side)
	assert.InDelta(t, 9.50, b.Cost, 1e-9)
	assert.InDelta(t, 10.0, b.MinPayout, 1e-9)
	assert.InDelta(t, 0.50, b.WorstCaseProfit, 1e-9)
	assert.True(t, b.IsArbitrage)
}

func TestEvaluateWorstCaseProfitFormula(t *testing.T) {
	// For any YES-side price set with sum < 1, worst-case profit must equal
	// stake * (1 - sum).
	cases := []struct {
		name   string
		prices []float64
		stake  float64
	}{
		{"two legs", []float64{0.40, 0.55}, 25},
		{"four legs", []float64{0.10, 0.20, 0.30, 0.35}, 7.5},
		{"barely profitable", []float64{0.49, 0.49}, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var markets []domain.Market
			var sum float64
			for i, p := range tc.prices {
				markets = append(markets, mkt(string(rune('a'+i)), p, 1-p))
				sum += p
			}

			bundles := Evaluate(markets, tc.stake)
			require.NotEmpty(t, bundles)

			b := bundles[0]
			want := tc.stake * (1 - sum)
			assert.InDelta(t, want, b.WorstCaseProfit, 1e-9)
			assert.Equal(t, want > domain.ProfitEpsilon, b.IsArbitrage)
		})
	}
}

func TestEvaluateNoStrategy(t *testing.T) {
	// YES prices sum to 1.10, so the YES hedge loses. NO prices sum to 1.90
	// on 3 legs; the NO hedge pays 2*stake in every scenario, costing
	// 1.90*stake, locking in 0.10*stake.
	markets := []domain.Market{
		mkt("a", 0.40, 0.60),
		mkt("b", 0.40, 0.60),
		mkt("c", 0.30, 0.70),
	}

	bundles := Evaluate(markets, 10)
	require.Len(t, bundles, 1)

	b := bundles[0]
	assert.Equal(t, domain.BundleSideNo, b.Side)
	assert.InDelta(t, 19.0, b.Cost, 1e-9)
	assert.InDelta(t, 20.0, b.MinPayout, 1e-9)
	assert.InDelta(t, 1.0, b.WorstCaseProfit, 1e-9)
	assert.True(t, b.IsArbitrage)
}

func TestEvaluateNoArbitrage(t *testing.T) {
	// Fairly priced event: neither strategy clears the epsilon.
	markets := []domain.Market{
		mkt("a", 0.50, 0.50),
		mkt("b", 0.50, 0.50),
	}
	assert.Empty(t, Evaluate(markets, 10))
}

func TestEvaluateEpsilonGuard(t *testing.T) {
	// Worst-case profit of exactly one cent is noise, not arbitrage.
	markets := []domain.Market{
		mkt("a", 0.499, 0.60),
		mkt("b", 0.500, 0.60),
	}
	// stake 10: profit = 10 * (1 - 0.999) = 0.01, not > epsilon.
	assert.Empty(t, Evaluate(markets, 10))
}

func TestEvaluateFewerThanTwoLegs(t *testing.T) {
	assert.Empty(t, Evaluate(nil, 10))
	assert.Empty(t, Evaluate([]domain.Market{mkt("a", 0.30, 0.70)}, 10))
}

func TestEvaluateExcludesNonPositivePrices(t *testing.T) {
	// A zero-priced leg must not fabricate an infinite-profit hedge: with it
	// excluded only one tradable YES leg remains, so no bundle is produced.
	markets := []domain.Market{
		mkt("a", 0.30, 0.72),
		mkt("b", 0, 0.55),
	}
	assert.Empty(t, Evaluate(markets, 10))
}

func TestEvaluateDeterministic(t *testing.T) {
	markets := []domain.Market{
		mkt("a", 0.30, 0.72),
		mkt("b", 0.45, 0.57),
		mkt("c", 0.20, 0.82),
	}
	first := Evaluate(markets, 10)
	second := Evaluate(markets, 10)
	assert.Equal(t, first, second)
}
