package domain

import "time"

// BundleSide identifies which uniform hedging strategy a bundle prices:
// buy YES on every leg, or buy NO on every leg.
type BundleSide string

const (
	BundleSideYes BundleSide = "yes"
	BundleSideNo  BundleSide = "no"
)

// ProfitEpsilon is the minimum worst-case profit for a bundle to count as
// arbitrage. It guards against floating-point noise and negligible edges.
const ProfitEpsilon = 0.01

// ArbitrageBundle is the priced outcome of one uniform hedging strategy
// across all legs of an event.
type ArbitrageBundle struct {
	Side            BundleSide
	Cost            float64 // stake * sum of per-leg prices
	MinPayout       float64 // payout in the worst resolution scenario
	WorstCaseProfit float64 // MinPayout - Cost
	IsArbitrage     bool    // WorstCaseProfit > ProfitEpsilon
}

// Opportunity is a candidate hedge over one event's markets. It is created
// fresh each scan cycle and owned exclusively by the orchestrator until it is
// either committed or discarded.
type Opportunity struct {
	ID               string
	EventID          string
	Event            Event
	Markets          []Market // pricing snapshot the bundles were computed from
	NormalizedShares float64  // uniform stake applied to every leg
	Bundles          []ArbitrageBundle
	DetectedAt       time.Time
}

// BestBundle returns the retained bundle with the highest worst-case profit.
// ok is false when the opportunity holds no bundles.
func (o Opportunity) BestBundle() (ArbitrageBundle, bool) {
	if len(o.Bundles) == 0 {
		return ArbitrageBundle{}, false
	}
	best := o.Bundles[0]
	for _, b := range o.Bundles[1:] {
		if b.WorstCaseProfit > best.WorstCaseProfit {
			best = b
		}
	}
	return best, true
}
