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

const balanceKey = "balance:collateral"

// BalanceCache implements domain.BalanceCache. It stores the last observed
// collateral balance with its observation time under a TTL, so readers can
// judge staleness themselves when the exchange is unreachable.
type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBalanceCache creates a BalanceCache backed by the given Client. Entries
// expire after ttl.
func NewBalanceCache(c *Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{rdb: c.Underlying(), ttl: ttl}
}

type balanceEntry struct {
	Amount float64   `json:"amount"`
	At     time.Time `json:"at"`
}

// Set records the balance observed now.
func (bc *BalanceCache) Set(ctx context.Context, amount float64) error {
	data, err := json.Marshal(balanceEntry{Amount: amount, At: time.Now()})
	if err != nil {
		return fmt.Errorf("redis: marshal balance: %w", err)
	}
	if err := bc.rdb.Set(ctx, balanceKey, data, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set balance: %w", err)
	}
	return nil
}

// Get returns the cached balance and when it was observed. It returns
// domain.ErrNotFound when no live entry exists.
func (bc *BalanceCache) Get(ctx context.Context) (float64, time.Time, error) {
	data, err := bc.rdb.Get(ctx, balanceKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, fmt.Errorf("redis: balance: %w", domain.ErrNotFound)
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get balance: %w", err)
	}

	var entry balanceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: unmarshal balance: %w", err)
	}
	return entry.Amount, entry.At, nil
}

// Invalidate drops the cached balance, typically right after an order commits
// and the on-exchange balance is known to have changed.
func (bc *BalanceCache) Invalidate(ctx context.Context) error {
	if err := bc.rdb.Del(ctx, balanceKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate balance: %w", err)
	}
	return nil
}
