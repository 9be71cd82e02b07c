package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// OrderbookCache implements domain.OrderbookCache by storing each asset's
// most recent snapshot as a JSON value under book:{assetID}. Entries expire
// on their own; the websocket feed is expected to refresh them continuously.
type OrderbookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
// Snapshots expire after ttl.
func NewOrderbookCache(c *Client, ttl time.Duration) *OrderbookCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &OrderbookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookKey(assetID string) string { return "book:" + assetID }

// SetSnapshot replaces the cached snapshot for an asset.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, assetID string, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", assetID, err)
	}
	if err := oc.rdb.Set(ctx, bookKey(assetID), data, oc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", assetID, err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot for an asset. It returns
// domain.ErrNotFound when the entry is missing or expired.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, assetID string) (domain.OrderbookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(assetID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: snapshot %s: %w", assetID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", assetID, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", assetID, err)
	}
	return snap, nil
}
