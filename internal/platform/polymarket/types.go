package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APITag is a topical tag attached to a Gamma event.
type APITag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// APIEvent represents an event as returned by the Polymarket Gamma API.
// An event groups the outcome markets of one real-world question.
type APIEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Active      flexBool    `json:"active"`
	Closed      flexBool    `json:"closed"`
	EndDate     string      `json:"endDate"`
	NegRisk     bool        `json:"negRisk"`
	Tags        []APITag    `json:"tags"`
	Markets     []APIMarket `json:"markets"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Several numeric fields arrive as JSON-encoded strings.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"`
	Closed        flexBool `json:"closed"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.3\",\"0.7\"]"
	ClobTokenIDs  string   `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume        string   `json:"volume"`
	Spread        float64  `json:"spread"`
	OrderMinSize  float64  `json:"orderMinSize"`
	EndDate       string   `json:"endDate"`
}

// ToDomain converts a Gamma APIMarket into a domain.Market. The conversion is
// strict: a market is only usable as a hedge leg when clobTokenIds parses to
// exactly two non-empty IDs and outcomePrices to exactly two prices. A market
// failing either check returns an error instead of a half-filled struct; a
// leg you cannot submit orders against must never reach the execution path.
func (m *APIMarket) ToDomain() (domain.Market, error) {
	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err != nil {
		return domain.Market{}, fmt.Errorf("market %s: parse clobTokenIds: %w", m.ID, err)
	}
	if len(tokenIDs) != 2 || tokenIDs[0] == "" || tokenIDs[1] == "" {
		return domain.Market{}, fmt.Errorf("market %s: want exactly 2 clob token ids, got %d", m.ID, len(tokenIDs))
	}

	var priceStrs []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &priceStrs); err != nil {
		return domain.Market{}, fmt.Errorf("market %s: parse outcomePrices: %w", m.ID, err)
	}
	if len(priceStrs) != 2 {
		return domain.Market{}, fmt.Errorf("market %s: want exactly 2 outcome prices, got %d", m.ID, len(priceStrs))
	}
	prices := make([]float64, 2)
	for i, s := range priceStrs {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Market{}, fmt.Errorf("market %s: parse outcome price %q: %w", m.ID, s, err)
		}
		prices[i] = p
	}

	dm := domain.Market{
		ID:           m.ID,
		Question:     m.Question,
		Slug:         m.Slug,
		YesPrice:     prices[0],
		NoPrice:      prices[1],
		Spread:       m.Spread,
		OrderMinSize: m.OrderMinSize,
		YesTokenID:   tokenIDs[0],
		NoTokenID:    tokenIDs[1],
		Active:       bool(m.Active) && !bool(m.Closed),
	}
	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		dm.Volume = v
	}
	if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
		dm.EndDate = t
	}
	return dm, nil
}

// ToDomain converts a Gamma APIEvent into a domain.Event. Every active
// embedded market must pass the strict market conversion; one malformed leg
// makes the whole event unusable for an exhaustive hedge, so the event is
// rejected rather than silently thinned.
func (e *APIEvent) ToDomain() (domain.Event, error) {
	ev := domain.Event{
		ID:          e.ID,
		Slug:        e.Slug,
		Title:       e.Title,
		Description: e.Description,
	}
	if t, err := time.Parse(time.RFC3339, e.EndDate); err == nil {
		ev.EndDate = t
	}
	for _, tag := range e.Tags {
		if tag.Label != "" {
			ev.Tags = append(ev.Tags, tag.Label)
		}
	}

	for i := range e.Markets {
		am := &e.Markets[i]
		if !bool(am.Active) || bool(am.Closed) {
			continue
		}
		m, err := am.ToDomain()
		if err != nil {
			return domain.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
		}
		ev.Markets = append(ev.Markets, m)
	}
	return ev, nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// ToDomain converts an APIOrderResult to a domain.OrderResult.
func (r *APIOrderResult) ToDomain() domain.OrderResult {
	result := domain.OrderResult{
		Success:     r.Success,
		OrderID:     r.OrderID,
		Message:     r.ErrorMsg,
		ShouldRetry: r.ShouldRetry,
	}
	switch r.Status {
	case "live", "open":
		result.Status = domain.OrderStatusOpen
	case "matched":
		result.Status = domain.OrderStatusMatched
	case "delayed":
		result.Status = domain.OrderStatusPending
	default:
		if r.Success {
			result.Status = domain.OrderStatusPending
		} else {
			result.Status = domain.OrderStatusFailed
		}
	}
	return result
}

// APIBook is an orderbook as returned by the CLOB REST API and the "book"
// channel of the CLOB WebSocket.
type APIBook struct {
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
}

// APIPriceLevel is a single bid/ask level with string-encoded numbers.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToSnapshot converts an APIBook to a domain.OrderbookSnapshot.
func (b *APIBook) ToSnapshot() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{AssetID: b.AssetID}

	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
		if p > snap.BestBid {
			snap.BestBid = p
		}
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
		if snap.BestAsk == 0 || p < snap.BestAsk {
			snap.BestAsk = p
		}
	}

	if ts, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		// The CLOB stamps books in milliseconds.
		snap.Timestamp = time.UnixMilli(ts)
	} else if t, err := time.Parse(time.RFC3339, b.Timestamp); err == nil {
		snap.Timestamp = t
	} else {
		snap.Timestamp = time.Now()
	}
	return snap
}

// --------------------------------------------------------------------------
// WebSocket subscription commands
// --------------------------------------------------------------------------

// WSCommand is the JSON payload sent to the WebSocket to subscribe or
// unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}
