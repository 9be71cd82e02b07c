// Package feed keeps the orderbook cache warm. It tracks the outcome tokens
// of active events, subscribes to their book streams, and writes every
// snapshot through to the cache. The engine still fetches live books before
// committing; the cache exists for monitoring surfaces and cheap reads.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// EventLister pages through active events, mirroring the discovery surface
// the engine uses.
type EventLister interface {
	ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error)
}

// BookStream is the subscription surface of the websocket client.
type BookStream interface {
	SubscribeBooks(assetIDs []string) error
	OnBook(func(domain.OrderbookSnapshot))
}

// Config holds the feed's tunables.
type Config struct {
	RefreshInterval time.Duration
	PageSize        int
	MaxEvents       int
}

// BookFeed subscribes to book streams for every token of every tracked event
// and mirrors the snapshots into the orderbook cache.
type BookFeed struct {
	cfg        Config
	events     EventLister
	stream     BookStream
	cache      domain.OrderbookCache
	logger     *slog.Logger
	subscribed map[string]bool
}

// New creates a BookFeed. Call Run to start it.
func New(cfg Config, events EventLister, stream BookStream, cache domain.OrderbookCache, logger *slog.Logger) *BookFeed {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &BookFeed{
		cfg:        cfg,
		events:     events,
		stream:     stream,
		cache:      cache,
		logger:     logger.With("component", "feed"),
		subscribed: make(map[string]bool),
	}
}

// Run registers the cache write-through handler and refreshes subscriptions
// until ctx is done. Refresh errors are logged and retried next interval.
func (f *BookFeed) Run(ctx context.Context) error {
	f.stream.OnBook(func(snap domain.OrderbookSnapshot) {
		if err := f.cache.SetSnapshot(ctx, snap.AssetID, snap); err != nil {
			f.logger.Warn("cache write failed", "asset_id", snap.AssetID, "error", err)
		}
	})

	ticker := time.NewTicker(f.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		if err := f.refresh(ctx); err != nil {
			f.logger.Error("subscription refresh failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// refresh lists active events and subscribes to any tokens not yet streamed.
func (f *BookFeed) refresh(ctx context.Context) error {
	var tokens []string
	seen := 0
	for offset := 0; ; offset += f.cfg.PageSize {
		page, err := f.events.ListEvents(ctx, f.cfg.PageSize, offset)
		if err != nil {
			return err
		}
		for _, ev := range page {
			for _, m := range ev.ActiveMarkets() {
				for _, id := range []string{m.YesTokenID, m.NoTokenID} {
					if id == "" || f.subscribed[id] {
						continue
					}
					tokens = append(tokens, id)
				}
			}
		}
		seen += len(page)
		if len(page) < f.cfg.PageSize {
			break
		}
		if f.cfg.MaxEvents > 0 && seen >= f.cfg.MaxEvents {
			break
		}
	}

	if len(tokens) == 0 {
		return nil
	}
	if err := f.stream.SubscribeBooks(tokens); err != nil {
		return err
	}
	for _, id := range tokens {
		f.subscribed[id] = true
	}
	f.logger.Info("subscribed to new tokens", "count", len(tokens), "total", len(f.subscribed))
	return nil
}
