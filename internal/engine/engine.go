// Package engine orchestrates the scan cycle: discover events, price hedge
// bundles, validate candidates, simulate fills against live depth, and commit
// order batches all-or-nothing. One Engine owns one scan loop; all shared
// state is held in explicit dependencies injected at construction.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/eventarb/internal/arb"
	"github.com/alanyoungcy/eventarb/internal/depth"
	"github.com/alanyoungcy/eventarb/internal/domain"
)

// MarketFeed pages through active multi-outcome events.
type MarketFeed interface {
	ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error)
}

// Exchange is the order-side surface the engine needs: live books, order
// placement and cancellation, and the collateral balance.
type Exchange interface {
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error)
	PostOrder(ctx context.Context, tokenID string, side domain.OrderSide, price, size float64) (domain.OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	CollateralBalance(ctx context.Context) (float64, error)
}

// ExclusivityOracle answers whether an event's outcomes are mutually
// exclusive and exhaustive. The hedge math is only sound when they are.
type ExclusivityOracle interface {
	IsExclusive(ctx context.Context, eventID, title, description string, tags []string) (bool, error)
}

// ExecutedLedger is the durable set of event IDs that already carry a
// committed hedge. Executing an event twice doubles exposure, so membership
// must survive restarts.
type ExecutedLedger interface {
	Contains(id string) bool
	Append(id string) error
}

// Notifier delivers human-facing alerts. Delivery failures are logged and
// never affect the trading path.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Config holds the engine's tunables.
type Config struct {
	ScanInterval         time.Duration
	PageSize             int
	MaxEvents            int // 0 means no cap
	DiscoveryParallelism int
	OrderMinSize         float64
	CallTimeout          time.Duration
	DryRun               bool
}

// Deps collects the engine's collaborators. Feed, Exchange, Estimator,
// Validator, Memo, Executed, and Logger are required; the rest are optional
// and skipped when nil.
type Deps struct {
	Feed      MarketFeed
	Exchange  Exchange
	Oracle    ExclusivityOracle
	Estimator *depth.Estimator
	Validator *Validator
	Memo      *FailedEventMemo
	Executed  ExecutedLedger
	Books     domain.OrderbookCache
	Balances  domain.BalanceCache
	Execs     domain.ExecutionStore
	Opps      domain.OpportunityStore
	Notifier  Notifier
	Logger    *slog.Logger
}

// Engine runs the detection and execution loop.
type Engine struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

// CycleStats summarizes one scan cycle.
type CycleStats struct {
	EventsScanned int
	Candidates    int
	Rejected      int
	Executed      int
	RolledBack    int
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.DiscoveryParallelism <= 0 {
		cfg.DiscoveryParallelism = 5
	}
	if cfg.OrderMinSize <= 0 {
		cfg.OrderMinSize = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "engine"),
		now:    time.Now,
	}
}

// Run executes scan cycles at the configured interval until ctx is done. The
// first cycle starts immediately. Cycle errors are logged, not fatal.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		stats, err := e.ScanCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("scan cycle failed", "error", err)
		} else {
			e.logger.Info("scan cycle complete",
				"events", stats.EventsScanned,
				"candidates", stats.Candidates,
				"rejected", stats.Rejected,
				"executed", stats.Executed,
				"rolled_back", stats.RolledBack)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScanCycle runs one full pass: discovery fans out across events with bounded
// parallelism, then the surviving opportunities are committed strictly one at
// a time in descending worst-case-profit order so collateral checks stay
// truthful.
func (e *Engine) ScanCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	events, err := e.discoverEvents(ctx)
	if err != nil {
		return stats, err
	}
	stats.EventsScanned = len(events)

	var (
		mu   sync.Mutex
		opps []domain.Opportunity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.DiscoveryParallelism)
	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			opp, ok := e.buildOpportunity(gctx, ev)
			if ok {
				mu.Lock()
				opps = append(opps, opp)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	stats.Candidates = len(opps)

	sort.Slice(opps, func(i, j int) bool {
		bi, _ := opps[i].BestBundle()
		bj, _ := opps[j].BestBundle()
		return bi.WorstCaseProfit > bj.WorstCaseProfit
	})

	for _, opp := range opps {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		outcome := e.executeOpportunity(ctx, opp)
		switch {
		case outcome == nil:
			stats.Rejected++
		case outcome.OrdersPlaced:
			stats.Executed++
		case outcome.RolledBack:
			stats.RolledBack++
		}
	}
	return stats, nil
}

func (e *Engine) discoverEvents(ctx context.Context) ([]domain.Event, error) {
	var all []domain.Event
	for offset := 0; ; offset += e.cfg.PageSize {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		page, err := e.deps.Feed.ListEvents(callCtx, e.cfg.PageSize, offset)
		cancel()
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < e.cfg.PageSize {
			break
		}
		if e.cfg.MaxEvents > 0 && len(all) >= e.cfg.MaxEvents {
			all = all[:e.cfg.MaxEvents]
			break
		}
	}
	return all, nil
}

// buildOpportunity prices one event. It returns false for events that are
// already executed, recently failed, not mutually exclusive, or simply not
// profitable. The pure math runs on a point-in-time copy of the event's
// prices; nothing here mutates shared state besides the oracle's memo.
func (e *Engine) buildOpportunity(ctx context.Context, ev domain.Event) (domain.Opportunity, bool) {
	markets := ev.ActiveMarkets()
	if len(markets) < 2 {
		return domain.Opportunity{}, false
	}
	if e.deps.Executed.Contains(ev.ID) {
		return domain.Opportunity{}, false
	}
	if e.deps.Memo.Contains(ev.ID) {
		e.logger.Debug("skipping recently failed event", "event_id", ev.ID)
		return domain.Opportunity{}, false
	}

	if e.deps.Oracle != nil {
		exclusive, err := e.deps.Oracle.IsExclusive(ctx, ev.ID, ev.Title, ev.Description, ev.Tags)
		if err != nil {
			e.logger.Warn("exclusivity check failed, skipping event", "event_id", ev.ID, "error", err)
			return domain.Opportunity{}, false
		}
		if !exclusive {
			return domain.Opportunity{}, false
		}
	}

	var (
		bundles   []domain.ArbitrageBundle
		bestStake float64
		best      domain.ArbitrageBundle
	)
	for _, side := range []domain.BundleSide{domain.BundleSideYes, domain.BundleSideNo} {
		stake := arb.NormalizeShares(markets, side, e.cfg.OrderMinSize)
		bundle, ok := arb.EvaluateStrategy(markets, side, stake)
		if !ok || !bundle.IsArbitrage {
			continue
		}
		bundles = append(bundles, bundle)
		if bestStake == 0 || bundle.WorstCaseProfit > best.WorstCaseProfit {
			best, bestStake = bundle, stake
		}
	}
	if len(bundles) == 0 {
		return domain.Opportunity{}, false
	}

	opp := domain.Opportunity{
		ID:               uuid.NewString(),
		EventID:          ev.ID,
		Event:            ev,
		Markets:          markets,
		NormalizedShares: bestStake,
		Bundles:          bundles,
		DetectedAt:       e.now(),
	}
	e.logger.Info("opportunity detected",
		"event_id", ev.ID,
		"title", ev.Title,
		"side", best.Side,
		"legs", len(markets),
		"stake", bestStake,
		"worst_case_profit", best.WorstCaseProfit)
	return opp, true
}

// collateral returns the freshest balance available. The exchange is the
// source of truth; the cache is written through on success and only read as
// a fallback when the exchange query fails.
func (e *Engine) collateral(ctx context.Context) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	balance, err := e.deps.Exchange.CollateralBalance(callCtx)
	if err == nil {
		if e.deps.Balances != nil {
			if cerr := e.deps.Balances.Set(ctx, balance); cerr != nil {
				e.logger.Debug("balance cache write failed", "error", cerr)
			}
		}
		return balance, nil
	}

	if e.deps.Balances != nil {
		if cached, at, cerr := e.deps.Balances.Get(ctx); cerr == nil {
			e.logger.Warn("balance query failed, using cached value",
				"error", err, "cached_at", at)
			return cached, nil
		}
	}
	return 0, err
}

func (e *Engine) recordOpportunity(ctx context.Context, opp domain.Opportunity, accepted bool, reason string) {
	if e.deps.Opps == nil {
		return
	}
	if err := e.deps.Opps.Insert(ctx, opp, accepted, reason); err != nil {
		e.logger.Warn("opportunity record failed", "opportunity_id", opp.ID, "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, text string) {
	if e.deps.Notifier == nil {
		return
	}
	if err := e.deps.Notifier.Notify(ctx, text); err != nil {
		e.logger.Warn("notification failed", "error", err)
	}
}
