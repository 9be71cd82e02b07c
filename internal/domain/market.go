package domain

import "time"

// Market is an immutable pricing snapshot of one outcome market within an
// event. It is re-fetched every scan cycle and never mutated after creation.
type Market struct {
	ID           string
	Question     string
	Slug         string
	YesPrice     float64 // executable ask cost to buy one YES share
	NoPrice      float64 // executable ask cost to buy one NO share
	Spread       float64
	Volume       float64
	EndDate      time.Time
	OrderMinSize float64
	YesTokenID   string // CLOB token ID for the YES outcome
	NoTokenID    string // CLOB token ID for the NO outcome
	Active       bool
}

// DaysToExpiry returns the whole number of days until the market's end date,
// clamped at zero for markets already past expiry.
func (m Market) DaysToExpiry(now time.Time) int {
	if m.EndDate.IsZero() || !m.EndDate.After(now) {
		return 0
	}
	return int(m.EndDate.Sub(now).Hours() / 24)
}

// Event groups the mutually exclusive, exhaustive outcome markets of one
// real-world question. Exactly one market in Markets resolves winning; the
// engine estimates that property (via heuristics and the oracle) but cannot
// enforce it.
type Event struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Tags        []string
	EndDate     time.Time
	Markets     []Market
}

// ActiveMarkets returns the event's markets that are open for trading.
func (e Event) ActiveMarkets() []Market {
	out := make([]Market, 0, len(e.Markets))
	for _, m := range e.Markets {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}
