package domain

import "time"

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks the order lifecycle on the exchange.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusMatched   OrderStatus = "matched"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// OrderLeg is the minimal, validated data needed to submit one leg of a
// hedge. It is produced by a strict parse at the feed boundary; a market
// whose exchange-side identifiers do not parse never becomes an OrderLeg.
type OrderLeg struct {
	MarketID   string
	Question   string
	YesTokenID string
	NoTokenID  string
	Price      float64 // modeled per-share cost under the chosen bundle side
	EndDate    time.Time
}

// TokenID returns the exchange token identifier for the given bundle side.
func (l OrderLeg) TokenID(side BundleSide) string {
	if side == BundleSideNo {
		return l.NoTokenID
	}
	return l.YesTokenID
}

// OrderResult wraps the exchange response after order submission.
type OrderResult struct {
	Success     bool
	OrderID     string
	Status      OrderStatus
	Message     string
	ShouldRetry bool
}

// LegOutcome records the submission result for a single leg of an attempt.
type LegOutcome struct {
	MarketID   string
	TokenID    string
	OrderID    string
	LimitPrice float64
	Size       float64
	Success    bool
	Error      string
}

// ExecutionOutcome is the terminal record of one multi-leg commit attempt.
// OrdersPlaced is true only when every leg succeeded; any other combination
// means the attempt was rolled back.
type ExecutionOutcome struct {
	ID           string
	EventID      string
	Side         BundleSide
	Legs         []LegOutcome
	OrdersPlaced bool
	RolledBack   bool
	Cost         float64
	ExpectedMin  float64 // worst-case payout locked in by the hedge
	StartedAt    time.Time
	CompletedAt  time.Time
}
