// Package depth simulates walking an orderbook to predict the real fill
// price of an order before any capital is committed. The walk itself is pure
// computation; callers are responsible for fetching a fresh book snapshot
// immediately before acting on the result.
package depth

import (
	"math"
	"sort"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// expiryToleranceCapDays caps how many days of expiry headroom widen the fill
// tolerance. Beyond this the market has ample time to drift back to fair
// value and extra tolerance stops being meaningful.
const expiryToleranceCapDays = 4

// tolerancePerDay is the additional acceptable fill premium per day of
// remaining expiry headroom.
const tolerancePerDay = 0.01

// Estimator predicts fill quality for a desired order size against a book
// snapshot. BaseSpreadBudget is the flat tolerance applied to every fill
// regardless of expiry.
type Estimator struct {
	BaseSpreadBudget float64
}

// NewEstimator creates an Estimator with the given base spread budget.
func NewEstimator(baseSpreadBudget float64) *Estimator {
	return &Estimator{BaseSpreadBudget: baseSpreadBudget}
}

// Tolerance returns the acceptable premium over the desired price for a
// market with the given days to expiry. Near-expiry legs must fill close to
// the modeled price or the hedge's margin is not real; far-dated legs get
// more room because price is expected to revert before settlement.
func (e *Estimator) Tolerance(daysToExpiry int) float64 {
	days := daysToExpiry
	if days > expiryToleranceCapDays {
		days = expiryToleranceCapDays
	}
	if days < 0 {
		days = 0
	}
	return e.BaseSpreadBudget + float64(days)*tolerancePerDay
}

// EstimateFill walks the opposing side of the book (asks for a buy, bids for
// a sell) from the best price outward, greedily consuming size until
// desiredSize is satisfied or the book runs out.
func (e *Estimator) EstimateFill(book domain.OrderbookSnapshot, side domain.OrderSide, desiredSize, desiredPrice float64, daysToExpiry int) domain.DepthCheck {
	check := domain.DepthCheck{
		Spread:      book.Spread(),
		SlippagePct: math.Inf(1),
	}
	if desiredSize <= 0 {
		return check
	}

	levels := opposingLevels(book, side)

	var (
		remaining = desiredSize
		totalCost float64
		worst     float64
		available float64
	)
	for _, lvl := range levels {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		available += lvl.Size

		if remaining <= 0 {
			continue
		}
		take := math.Min(lvl.Size, remaining)
		totalCost += take * lvl.Price
		remaining -= take
		worst = lvl.Price
	}

	check.TotalAvailable = available
	if remaining > 1e-9 {
		// Book exhausted: the fillable amount is all we can report, and
		// slippage stays unbounded.
		check.TotalAvailable = desiredSize - remaining
		return check
	}

	check.AvgFillPrice = totalCost / desiredSize
	check.WorstFillPrice = worst

	if mid := book.MidPrice(); mid > 0 {
		check.SlippagePct = math.Abs(check.AvgFillPrice-mid) / mid
	}

	check.CanFill = check.AvgFillPrice <= desiredPrice+e.Tolerance(daysToExpiry)
	return check
}

// opposingLevels returns the side of the book an aggressive order consumes,
// sorted from most to least favorable.
func opposingLevels(book domain.OrderbookSnapshot, side domain.OrderSide) []domain.PriceLevel {
	if side == domain.OrderSideBuy {
		levels := append([]domain.PriceLevel(nil), book.Asks...)
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
		return levels
	}
	levels := append([]domain.PriceLevel(nil), book.Bids...)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
	return levels
}
