package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/eventarb/internal/depth"
	"github.com/alanyoungcy/eventarb/internal/engine"
	"github.com/alanyoungcy/eventarb/internal/feed"
	"github.com/alanyoungcy/eventarb/internal/platform/polymarket"
)

// ScanMode runs the full detection and execution loop: discover events, price
// hedge bundles, and commit order batches with real money. The archiver runs
// alongside when enabled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")
	return a.runEngine(ctx, deps, false)
}

// MonitorMode runs the same loop as ScanMode but never places orders.
// Accepted opportunities are recorded and notified only.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode (no orders will be placed)")
	return a.runEngine(ctx, deps, true)
}

func (a *App) runEngine(ctx context.Context, deps *Dependencies, dryRun bool) error {
	eng := engine.New(engine.Config{
		ScanInterval:         a.cfg.Engine.ScanInterval.Duration,
		PageSize:             a.cfg.Engine.PageSize,
		MaxEvents:            a.cfg.Engine.MaxEvents,
		DiscoveryParallelism: a.cfg.Engine.DiscoveryParallelism,
		OrderMinSize:         a.cfg.Engine.OrderMinSize,
		CallTimeout:          a.cfg.Engine.CallTimeout.Duration,
		DryRun:               dryRun,
	}, engine.Deps{
		Feed:      deps.Gamma,
		Exchange:  deps.Clob,
		Oracle:    deps.Oracle,
		Estimator: depth.NewEstimator(a.cfg.Engine.BaseSpreadBudget),
		Validator: &engine.Validator{
			BaseProfitThreshold: a.cfg.Engine.BaseProfitThreshold,
			MinROIPercent:       a.cfg.Engine.MinROIPercent,
			MaxOrderCost:        a.cfg.Engine.MaxOrderCost,
		},
		Memo:     engine.NewFailedEventMemo(a.cfg.Engine.MemoMaxSize, a.cfg.Engine.MemoTTL.Duration),
		Executed: deps.Executed,
		Books:    deps.BookCache,
		Balances: deps.BalanceCache,
		Execs:    deps.ExecutionStore,
		Opps:     deps.OpportunityStore,
		Notifier: deps.Notifier,
		Logger:   a.logger,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.RunEvery(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	return g.Wait()
}

// FeedMode keeps the orderbook cache warm without running the engine. It
// subscribes to book streams for every tracked outcome token and mirrors the
// snapshots into Redis.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting feed mode")

	if a.cfg.Polymarket.WsHost == "" {
		return fmt.Errorf("app: feed mode requires polymarket.ws_host")
	}

	wsClient := polymarket.NewWSClient(a.cfg.Polymarket.WsHost + "/ws/market")
	if err := wsClient.Connect(ctx); err != nil {
		return fmt.Errorf("app: feed websocket: %w", err)
	}
	defer wsClient.Close()

	bookFeed := feed.New(feed.Config{
		RefreshInterval: a.cfg.Feed.RefreshInterval.Duration,
		PageSize:        a.cfg.Feed.PageSize,
		MaxEvents:       a.cfg.Feed.MaxEvents,
	}, deps.Gamma, wsClient, deps.BookCache, a.logger)

	return bookFeed.Run(ctx)
}
