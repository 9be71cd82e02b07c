package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for an asset.
type OrderbookSnapshot struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   float64
	BestAsk   float64
	Timestamp time.Time
}

// MidPrice returns the average of best bid and best ask, or whichever side
// exists when the book is one-sided. Returns 0 for an empty book.
func (s OrderbookSnapshot) MidPrice() float64 {
	switch {
	case s.BestBid > 0 && s.BestAsk > 0:
		return (s.BestBid + s.BestAsk) / 2
	case s.BestAsk > 0:
		return s.BestAsk
	default:
		return s.BestBid
	}
}

// Spread returns best ask minus best bid, or 0 when the book is one-sided.
func (s OrderbookSnapshot) Spread() float64 {
	if s.BestBid <= 0 || s.BestAsk <= 0 {
		return 0
	}
	return s.BestAsk - s.BestBid
}

// DepthCheck is the result of simulating a fill against a live book snapshot.
// It is computed immediately before use and never cached.
type DepthCheck struct {
	CanFill        bool
	AvgFillPrice   float64
	WorstFillPrice float64
	SlippagePct    float64 // fraction of mid price; math.Inf(1) when unfillable
	TotalAvailable float64
	Spread         float64
}
