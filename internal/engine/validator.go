package engine

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// Decision is the explicit accept/reject result threaded through the
// validation, depth-check, and commit phases. Expected rejections travel as
// Decisions; errors are reserved for genuinely unexpected conditions.
type Decision struct {
	Accepted bool
	Reason   string
}

// Accept returns an accepting decision.
func Accept() Decision { return Decision{Accepted: true} }

// Reject returns a rejecting decision with a formatted reason.
func Reject(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Validator runs the cheap, deterministic gates over a candidate bundle.
// It performs no I/O; callers supply a fresh collateral reading.
type Validator struct {
	// BaseProfitThreshold is the minimum worst-case profit for an
	// opportunity expiring immediately. The effective threshold grows with
	// days to expiry because committed capital is tied up longer.
	BaseProfitThreshold float64

	// MinROIPercent is the minimum worst-case profit as a percentage of cost.
	MinROIPercent float64

	// MaxOrderCost caps the collateral committed to a single opportunity
	// regardless of account balance.
	MaxOrderCost float64
}

// MinimumProfit returns the time-decayed profit bar for an opportunity whose
// furthest leg expires in daysToExpiry days.
func (v *Validator) MinimumProfit(daysToExpiry int) float64 {
	if daysToExpiry < 0 {
		daysToExpiry = 0
	}
	return v.BaseProfitThreshold + (v.BaseProfitThreshold/7)*float64(daysToExpiry+1)
}

// Validate runs the gates in order and short-circuits on the first failure:
// profit, ROI, tradability, collateral.
func (v *Validator) Validate(bundle domain.ArbitrageBundle, legs []domain.OrderLeg, availableCollateral float64, daysToExpiry int) Decision {
	minProfit := v.MinimumProfit(daysToExpiry)
	if bundle.WorstCaseProfit < minProfit {
		return Reject("profit %.4f below minimum %.4f (%dd to expiry)", bundle.WorstCaseProfit, minProfit, daysToExpiry)
	}

	if bundle.Cost > 0 {
		roi := bundle.WorstCaseProfit / bundle.Cost * 100
		if roi < v.MinROIPercent {
			return Reject("roi %.2f%% below minimum %.2f%%", roi, v.MinROIPercent)
		}
	}

	for _, leg := range legs {
		if leg.TokenID(bundle.Side) == "" {
			return Reject("leg %s has no %s token id; partial-event hedges are not allowed", leg.MarketID, bundle.Side)
		}
	}

	maxAffordable := math.Min(v.MaxOrderCost, availableCollateral)
	if bundle.Cost > maxAffordable {
		return Reject("cost %.2f exceeds affordable max %.2f (cap %.2f, collateral %.2f)", bundle.Cost, maxAffordable, v.MaxOrderCost, availableCollateral)
	}

	return Accept()
}
