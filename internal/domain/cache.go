package domain

import (
	"context"
	"time"
)

// OrderbookCache stores recent orderbook snapshots keyed by asset ID. The
// websocket feed keeps it warm; depth checks still re-fetch live books before
// commitment, so staleness here only costs an extra REST call.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, assetID string, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, assetID string) (OrderbookSnapshot, error)
}

// BalanceCache stores the last observed collateral balance with a TTL, so
// cheap validation gates do not burn a balance query per candidate. Commit
// paths bypass it and query the exchange directly.
type BalanceCache interface {
	Set(ctx context.Context, amount float64) error
	Get(ctx context.Context) (amount float64, at time.Time, err error)
	Invalidate(ctx context.Context) error
}
