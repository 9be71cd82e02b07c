package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// legPlan pairs a validated order leg with the depth measurement used to size
// and price its order.
type legPlan struct {
	leg   domain.OrderLeg
	check domain.DepthCheck
}

func legsForSide(markets []domain.Market, side domain.BundleSide) []domain.OrderLeg {
	legs := make([]domain.OrderLeg, 0, len(markets))
	for _, m := range markets {
		price := m.YesPrice
		if side == domain.BundleSideNo {
			price = m.NoPrice
		}
		legs = append(legs, domain.OrderLeg{
			MarketID:   m.ID,
			Question:   m.Question,
			YesTokenID: m.YesTokenID,
			NoTokenID:  m.NoTokenID,
			Price:      price,
			EndDate:    m.EndDate,
		})
	}
	return legs
}

func maxDaysToExpiry(markets []domain.Market, now func() time.Time) int {
	days := 0
	for _, m := range markets {
		if d := m.DaysToExpiry(now()); d > days {
			days = d
		}
	}
	return days
}

// executeOpportunity takes one opportunity through validation, depth
// simulation, and commitment. A nil return means the opportunity was rejected
// before any order was placed; a non-nil outcome records a commit attempt,
// successful or rolled back.
func (e *Engine) executeOpportunity(ctx context.Context, opp domain.Opportunity) *domain.ExecutionOutcome {
	bundle, ok := opp.BestBundle()
	if !ok {
		return nil
	}
	legs := legsForSide(opp.Markets, bundle.Side)
	days := maxDaysToExpiry(opp.Markets, e.now)

	balance, err := e.collateral(ctx)
	if err != nil {
		if !e.cfg.DryRun {
			e.logger.Warn("collateral unavailable, rejecting", "event_id", opp.EventID, "error", err)
			e.recordOpportunity(ctx, opp, false, "collateral unavailable")
			return nil
		}
		// No orders are placed in dry run, so an unknown balance reduces to
		// the configured cap rather than blocking the report.
		e.logger.Debug("collateral unavailable in dry run, assuming cap", "error", err)
		balance = e.deps.Validator.MaxOrderCost
	}

	dec := e.deps.Validator.Validate(bundle, legs, balance, days)
	if !dec.Accepted {
		e.logger.Debug("opportunity rejected", "event_id", opp.EventID, "reason", dec.Reason)
		e.recordOpportunity(ctx, opp, false, dec.Reason)
		return nil
	}

	if dec := e.cachedDepthScreen(ctx, legs, bundle.Side, opp.NormalizedShares, days); !dec.Accepted {
		e.logger.Debug("opportunity rejected by cached books", "event_id", opp.EventID, "reason", dec.Reason)
		e.recordOpportunity(ctx, opp, false, dec.Reason)
		return nil
	}

	plans, dec := e.measureDepth(ctx, legs, bundle.Side, opp.NormalizedShares, days)
	if !dec.Accepted {
		e.logger.Debug("opportunity rejected at depth", "event_id", opp.EventID, "reason", dec.Reason)
		e.recordOpportunity(ctx, opp, false, dec.Reason)
		return nil
	}

	e.recordOpportunity(ctx, opp, true, "")

	if e.cfg.DryRun {
		e.logger.Info("dry run, skipping execution",
			"event_id", opp.EventID,
			"side", bundle.Side,
			"cost", bundle.Cost,
			"worst_case_profit", bundle.WorstCaseProfit)
		e.notify(ctx, fmt.Sprintf("DRY RUN %s: %s hedge, cost %.2f, locked profit %.2f",
			opp.Event.Title, bundle.Side, bundle.Cost, bundle.WorstCaseProfit))
		return nil
	}

	outcome := e.commitBundle(ctx, opp, bundle, plans)

	if e.deps.Execs != nil {
		if err := e.deps.Execs.Create(ctx, outcome); err != nil {
			e.logger.Error("execution record failed", "execution_id", outcome.ID, "error", err)
		}
	}
	return &outcome
}

// cachedDepthScreen runs the fill simulation against books the feed already
// mirrored, sparing the live fetches when a leg is visibly too thin. A cache
// miss is not a verdict; the live depth check stays authoritative for every
// leg that passes here.
func (e *Engine) cachedDepthScreen(ctx context.Context, legs []domain.OrderLeg, side domain.BundleSide, shares float64, days int) Decision {
	if e.deps.Books == nil {
		return Accept()
	}
	for _, leg := range legs {
		snap, err := e.deps.Books.GetSnapshot(ctx, leg.TokenID(side))
		if err != nil {
			continue
		}
		check := e.deps.Estimator.EstimateFill(snap, domain.OrderSideBuy, shares, leg.Price, days)
		if !check.CanFill {
			return Reject("cached book for %s cannot fill %.2f shares (available %.2f)",
				leg.MarketID, shares, check.TotalAvailable)
		}
	}
	return Accept()
}

// measureDepth fetches a live book per leg and simulates the fill. Legs are
// checked concurrently; one thin leg rejects the whole opportunity because a
// partial hedge is naked exposure.
func (e *Engine) measureDepth(ctx context.Context, legs []domain.OrderLeg, side domain.BundleSide, shares float64, days int) ([]legPlan, Decision) {
	plans := make([]legPlan, len(legs))
	g, gctx := errgroup.WithContext(ctx)
	for i, leg := range legs {
		i, leg := i, leg
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.cfg.CallTimeout)
			defer cancel()
			book, err := e.deps.Exchange.GetOrderBook(callCtx, leg.TokenID(side))
			if err != nil {
				return fmt.Errorf("orderbook for %s: %w", leg.MarketID, err)
			}
			plans[i] = legPlan{
				leg:   leg,
				check: e.deps.Estimator.EstimateFill(book, domain.OrderSideBuy, shares, leg.Price, days),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Reject("depth check failed: %v", err)
	}

	for _, p := range plans {
		if !p.check.CanFill {
			return nil, Reject("leg %s cannot fill %.2f shares within tolerance (available %.2f, slippage %.4f)",
				p.leg.MarketID, shares, p.check.TotalAvailable, p.check.SlippagePct)
		}
	}
	return plans, Accept()
}

// commitBundle places the legs strictly sequentially, widest measured spread
// first, so the flakiest fill happens while nothing is at risk yet. Any
// failure cancels everything already placed; the hedge is all or nothing.
func (e *Engine) commitBundle(ctx context.Context, opp domain.Opportunity, bundle domain.ArbitrageBundle, plans []legPlan) domain.ExecutionOutcome {
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].check.Spread > plans[j].check.Spread
	})

	outcome := domain.ExecutionOutcome{
		ID:          uuid.NewString(),
		EventID:     opp.EventID,
		Side:        bundle.Side,
		ExpectedMin: bundle.MinPayout,
		StartedAt:   e.now(),
	}

	var placed []string
	for _, p := range plans {
		tokenID := p.leg.TokenID(bundle.Side)
		// Never bid above what the book showed a moment ago.
		limit := math.Min(p.leg.Price, p.check.AvgFillPrice)

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		res, err := e.deps.Exchange.PostOrder(callCtx, tokenID, domain.OrderSideBuy, limit, opp.NormalizedShares)
		cancel()

		ambiguous := err != nil && res.OrderID == ""

		legOut := domain.LegOutcome{
			MarketID:   p.leg.MarketID,
			TokenID:    tokenID,
			OrderID:    res.OrderID,
			LimitPrice: limit,
			Size:       opp.NormalizedShares,
			Success:    err == nil && res.Success,
		}
		if ambiguous {
			legOut.Error = fmt.Errorf("%w: %v", domain.ErrAmbiguousSubmission, err).Error()
		} else if err != nil {
			legOut.Error = err.Error()
		} else if !res.Success {
			legOut.Error = res.Message
		}
		outcome.Legs = append(outcome.Legs, legOut)

		if !legOut.Success {
			if ambiguous {
				// The submission may have landed despite the transport
				// error. With no order ID there is nothing to cancel.
				e.logger.Error("ambiguous order submission, reconcile positions manually",
					"event_id", opp.EventID, "market_id", p.leg.MarketID, "error", err)
			} else if res.OrderID != "" {
				placed = append(placed, res.OrderID)
			}
			e.logger.Warn("leg failed, rolling back",
				"event_id", opp.EventID,
				"market_id", p.leg.MarketID,
				"placed", len(placed),
				"error", legOut.Error)
			e.rollback(ctx, placed)
			outcome.RolledBack = true
			outcome.CompletedAt = e.now()
			e.deps.Memo.Add(opp.EventID)
			e.notify(ctx, fmt.Sprintf("ROLLED BACK %s: leg %s failed (%s)",
				opp.Event.Title, p.leg.MarketID, legOut.Error))
			return outcome
		}

		placed = append(placed, res.OrderID)
		outcome.Cost += limit * opp.NormalizedShares
	}

	outcome.OrdersPlaced = true
	outcome.CompletedAt = e.now()

	if err := e.deps.Executed.Append(opp.EventID); err != nil {
		e.logger.Error("executed ledger append failed", "event_id", opp.EventID, "error", err)
	}
	if e.deps.Balances != nil {
		if err := e.deps.Balances.Invalidate(ctx); err != nil {
			e.logger.Debug("balance cache invalidate failed", "error", err)
		}
	}

	profit := outcome.ExpectedMin - outcome.Cost
	e.logger.Info("hedge executed",
		"event_id", opp.EventID,
		"side", bundle.Side,
		"legs", len(outcome.Legs),
		"cost", outcome.Cost,
		"locked_profit", profit)
	e.notify(ctx, fmt.Sprintf("EXECUTED %s: %s hedge across %d legs, cost %.2f, locked profit %.2f",
		opp.Event.Title, bundle.Side, len(outcome.Legs), outcome.Cost, profit))
	return outcome
}

// rollback cancels the placed orders concurrently. It must run even when the
// scan context is already cancelled, otherwise a shutdown mid-commit strands
// live orders. Cancellation failures are logged loudly; they leave real
// exposure that needs a human.
func (e *Engine) rollback(ctx context.Context, orderIDs []string) {
	if len(orderIDs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for _, id := range orderIDs {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
			defer cancel()
			if err := e.deps.Exchange.CancelOrder(callCtx, id); err != nil {
				e.logger.Error("rollback cancel failed, manual intervention required",
					"order_id", id, "error", err)
			}
		}()
	}
	wg.Wait()
}
