package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

func validAPIMarket() APIMarket {
	return APIMarket{
		ID:            "m1",
		Question:      "Will candidate A win?",
		Active:        true,
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.30","0.72"]`,
		ClobTokenIDs:  `["tok-yes","tok-no"]`,
		Volume:        "12345.6",
		Spread:        0.02,
		OrderMinSize:  5,
		EndDate:       "2026-11-03T00:00:00Z",
	}
}

func TestAPIMarketToDomain(t *testing.T) {
	am := validAPIMarket()
	m, err := am.ToDomain()
	require.NoError(t, err)

	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, 0.30, m.YesPrice)
	assert.Equal(t, 0.72, m.NoPrice)
	assert.Equal(t, "tok-yes", m.YesTokenID)
	assert.Equal(t, "tok-no", m.NoTokenID)
	assert.Equal(t, 12345.6, m.Volume)
	assert.Equal(t, 5.0, m.OrderMinSize)
	assert.True(t, m.Active)
	assert.Equal(t, 2026, m.EndDate.Year())
}

func TestAPIMarketToDomainStrictness(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*APIMarket)
	}{
		{"malformed token ids", func(m *APIMarket) { m.ClobTokenIDs = "not json" }},
		{"one token id", func(m *APIMarket) { m.ClobTokenIDs = `["only"]` }},
		{"three token ids", func(m *APIMarket) { m.ClobTokenIDs = `["a","b","c"]` }},
		{"empty token id", func(m *APIMarket) { m.ClobTokenIDs = `["a",""]` }},
		{"malformed prices", func(m *APIMarket) { m.OutcomePrices = `{"yes":0.3}` }},
		{"one price", func(m *APIMarket) { m.OutcomePrices = `["0.30"]` }},
		{"non-numeric price", func(m *APIMarket) { m.OutcomePrices = `["0.30","abc"]` }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			am := validAPIMarket()
			tt.mutate(&am)
			_, err := am.ToDomain()
			assert.Error(t, err)
		})
	}
}

func TestAPIEventToDomainRejectsMalformedLeg(t *testing.T) {
	good := validAPIMarket()
	bad := validAPIMarket()
	bad.ID = "m2"
	bad.ClobTokenIDs = `["only-one"]`

	ev := APIEvent{
		ID:      "ev1",
		Title:   "Who will win?",
		Active:  true,
		Tags:    []APITag{{Label: "Elections"}},
		Markets: []APIMarket{good, bad},
	}
	_, err := ev.ToDomain()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "m2")
}

func TestAPIEventToDomainSkipsClosedMarkets(t *testing.T) {
	good := validAPIMarket()
	closed := validAPIMarket()
	closed.ID = "m2"
	closed.Closed = true
	// A closed market never becomes a leg, so its shape does not matter.
	closed.ClobTokenIDs = "garbage"

	ev := APIEvent{
		ID:          "ev1",
		Title:       "Who will win?",
		Description: "Resolves to the certified winner.",
		Active:      true,
		Tags:        []APITag{{Label: "Elections"}},
		Markets:     []APIMarket{good, closed},
	}
	dom, err := ev.ToDomain()
	require.NoError(t, err)
	require.Len(t, dom.Markets, 1)
	assert.Equal(t, "m1", dom.Markets[0].ID)
	assert.Equal(t, "Resolves to the certified winner.", dom.Description)
	assert.Equal(t, []string{"Elections"}, dom.Tags)
}

func TestFlexBool(t *testing.T) {
	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(`{"active":"true"}`), &m))
	assert.True(t, bool(m.Active))
	require.NoError(t, json.Unmarshal([]byte(`{"active":false}`), &m))
	assert.False(t, bool(m.Active))
}

func TestAPIBookToSnapshot(t *testing.T) {
	book := APIBook{
		AssetID: "tok-yes",
		Bids: []APIPriceLevel{
			{Price: "0.28", Size: "100"},
			{Price: "0.29", Size: "50"},
		},
		Asks: []APIPriceLevel{
			{Price: "0.32", Size: "40"},
			{Price: "0.31", Size: "10"},
		},
		Timestamp: "1756600000000",
	}
	snap := book.ToSnapshot()

	assert.Equal(t, "tok-yes", snap.AssetID)
	assert.Equal(t, 0.29, snap.BestBid)
	assert.Equal(t, 0.31, snap.BestAsk)
	assert.Len(t, snap.Bids, 2)
	assert.Len(t, snap.Asks, 2)
	assert.InDelta(t, 0.30, snap.MidPrice(), 1e-9)
	assert.Equal(t, int64(1756600000), snap.Timestamp.Unix())
}

func TestAPIOrderResultToDomain(t *testing.T) {
	live := APIOrderResult{Success: true, OrderID: "o1", Status: "live"}
	assert.Equal(t, domain.OrderStatusOpen, live.ToDomain().Status)

	matched := APIOrderResult{Success: true, OrderID: "o2", Status: "matched"}
	assert.Equal(t, domain.OrderStatusMatched, matched.ToDomain().Status)

	failed := APIOrderResult{Success: false, ErrorMsg: "not enough balance"}
	res := failed.ToDomain()
	assert.Equal(t, domain.OrderStatusFailed, res.Status)
	assert.Equal(t, "not enough balance", res.Message)
}
