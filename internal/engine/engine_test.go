package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventarb/internal/depth"
	"github.com/alanyoungcy/eventarb/internal/domain"
)

type fakeFeed struct {
	events []domain.Event
}

func (f *fakeFeed) ListEvents(_ context.Context, limit, offset int) ([]domain.Event, error) {
	if offset >= len(f.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.events) {
		end = len(f.events)
	}
	return f.events[offset:end], nil
}

type fakeExchange struct {
	mu        sync.Mutex
	books     map[string]domain.OrderbookSnapshot
	balance   float64
	failToken string
	errToken  string
	postSeq   []string
	placed    []string
	cancelled []string
	nextID    int
	bookCalls int
}

func (f *fakeExchange) GetOrderBook(_ context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookCalls++
	book, ok := f.books[tokenID]
	if !ok {
		return domain.OrderbookSnapshot{}, fmt.Errorf("no book for %s: %w", tokenID, domain.ErrNotFound)
	}
	return book, nil
}

func (f *fakeExchange) PostOrder(_ context.Context, tokenID string, _ domain.OrderSide, _, _ float64) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postSeq = append(f.postSeq, tokenID)
	if tokenID == f.errToken {
		return domain.OrderResult{}, fmt.Errorf("post order %s: connection reset", tokenID)
	}
	if tokenID == f.failToken {
		return domain.OrderResult{Success: false, Status: domain.OrderStatusFailed, Message: "not enough balance"}, nil
	}
	f.nextID++
	id := fmt.Sprintf("order-%d", f.nextID)
	f.placed = append(f.placed, id)
	return domain.OrderResult{Success: true, OrderID: id, Status: domain.OrderStatusOpen}, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeExchange) CollateralBalance(_ context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

type memLedger struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMemLedger() *memLedger { return &memLedger{ids: make(map[string]bool)} }

func (l *memLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id]
}

func (l *memLedger) Append(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = true
	return nil
}

type memNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *memNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func deepBook(assetID string, ask, spread, size float64) domain.OrderbookSnapshot {
	bid := ask - spread
	return domain.OrderbookSnapshot{
		AssetID:   assetID,
		BestBid:   bid,
		BestAsk:   ask,
		Bids:      []domain.PriceLevel{{Price: bid, Size: size}},
		Asks:      []domain.PriceLevel{{Price: ask, Size: size}},
		Timestamp: time.Now(),
	}
}

// hedgeEvent is the worked example: three outcomes at 0.30, 0.45, 0.20 whose
// YES hedge locks in a profit, with NO prices rich enough that no NO hedge
// exists.
func hedgeEvent() domain.Event {
	end := time.Now().Add(36 * time.Hour)
	mk := func(id string, yes, no float64) domain.Market {
		return domain.Market{
			ID:         id,
			Question:   "outcome " + id,
			YesPrice:   yes,
			NoPrice:    no,
			EndDate:    end,
			YesTokenID: "y-" + id,
			NoTokenID:  "n-" + id,
			Active:     true,
		}
	}
	return domain.Event{
		ID:      "ev-1",
		Title:   "Who will win the cup?",
		EndDate: end,
		Markets: []domain.Market{
			mk("a", 0.30, 0.75),
			mk("b", 0.45, 0.60),
			mk("c", 0.20, 0.85),
		},
	}
}

func hedgeBooks(size float64) map[string]domain.OrderbookSnapshot {
	// Distinct spreads so commit ordering is deterministic: a > b > c.
	return map[string]domain.OrderbookSnapshot{
		"y-a": deepBook("y-a", 0.30, 0.10, size),
		"y-b": deepBook("y-b", 0.45, 0.05, size),
		"y-c": deepBook("y-c", 0.20, 0.02, size),
	}
}

func newTestEngine(t *testing.T, exch *fakeExchange, feed *fakeFeed, cfg Config, mods ...func(*Deps)) (*Engine, *memLedger, *memNotifier, *FailedEventMemo) {
	t.Helper()
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = time.Minute
	}
	if cfg.OrderMinSize == 0 {
		cfg.OrderMinSize = 5
	}
	executed := newMemLedger()
	notifier := &memNotifier{}
	memo := NewFailedEventMemo(64, time.Hour)
	deps := Deps{
		Feed:      feed,
		Exchange:  exch,
		Estimator: depth.NewEstimator(0.05),
		Validator: &Validator{BaseProfitThreshold: 0.05, MinROIPercent: 1, MaxOrderCost: 100},
		Memo:      memo,
		Executed:  executed,
		Notifier:  notifier,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, mod := range mods {
		mod(&deps)
	}
	eng := New(cfg, deps)
	return eng, executed, notifier, memo
}

func TestScanCycleExecutesHedge(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	eng, executed, notifier, _ := newTestEngine(t, exch, feed, Config{})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EventsScanned)
	assert.Equal(t, 1, stats.Candidates)
	assert.Equal(t, 1, stats.Executed)
	assert.Zero(t, stats.RolledBack)

	// Legs submit one at a time in descending measured spread.
	assert.Equal(t, []string{"y-a", "y-b", "y-c"}, exch.postSeq)
	assert.Empty(t, exch.cancelled)
	assert.True(t, executed.Contains("ev-1"))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "EXECUTED")
}

func TestScanCycleSkipsExecutedEvent(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	eng, executed, _, _ := newTestEngine(t, exch, feed, Config{})

	require.NoError(t, executed.Append("ev-1"))

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Candidates)
	assert.Empty(t, exch.postSeq)
}

func TestCommitRollsBackOnLegFailure(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100, failToken: "y-c"}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	eng, executed, notifier, memo := newTestEngine(t, exch, feed, Config{})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.RolledBack)
	assert.Zero(t, stats.Executed)

	// Both successfully placed legs are cancelled; net position is zero.
	assert.ElementsMatch(t, exch.placed, exch.cancelled)
	assert.Len(t, exch.cancelled, 2)
	assert.False(t, executed.Contains("ev-1"))
	assert.True(t, memo.Contains("ev-1"))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "ROLLED BACK")

	// The failed event is memoized, so the next cycle skips it entirely.
	exch.postSeq = nil
	stats, err = eng.ScanCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Candidates)
	assert.Empty(t, exch.postSeq)
}

func TestScanCycleRejectsWhenCollateralShort(t *testing.T) {
	// YES hedge costs 4.75 at stake 5; the account holds only 3.
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 3}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	eng, executed, _, _ := newTestEngine(t, exch, feed, Config{})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Candidates)
	assert.Equal(t, 1, stats.Rejected)
	assert.Empty(t, exch.postSeq)
	assert.False(t, executed.Contains("ev-1"))
}

func TestScanCycleRejectsThinBook(t *testing.T) {
	books := hedgeBooks(1000)
	// One leg can only fill 2 of the 5 required shares.
	books["y-b"] = deepBook("y-b", 0.45, 0.05, 2)
	exch := &fakeExchange{books: books, balance: 100}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	eng, _, _, _ := newTestEngine(t, exch, feed, Config{})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Rejected)
	assert.Empty(t, exch.postSeq)
}

func TestDryRunPlacesNoOrders(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	eng, executed, notifier, _ := newTestEngine(t, exch, feed, Config{DryRun: true})

	_, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Empty(t, exch.postSeq)
	assert.False(t, executed.Contains("ev-1"))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "DRY RUN")
}

func TestDiscoveryPaginates(t *testing.T) {
	events := make([]domain.Event, 7)
	for i := range events {
		events[i] = domain.Event{ID: fmt.Sprintf("ev-%d", i)}
	}
	feed := &fakeFeed{events: events}
	exch := &fakeExchange{books: map[string]domain.OrderbookSnapshot{}, balance: 100}
	eng, _, _, _ := newTestEngine(t, exch, feed, Config{PageSize: 3})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.EventsScanned)
}

type fakeOracle struct {
	mu      sync.Mutex
	verdict bool
	descs   []string
}

func (o *fakeOracle) IsExclusive(_ context.Context, _, _, description string, _ []string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.descs = append(o.descs, description)
	return o.verdict, nil
}

type memBookCache struct {
	mu    sync.Mutex
	books map[string]domain.OrderbookSnapshot
}

func (c *memBookCache) SetSnapshot(_ context.Context, assetID string, snap domain.OrderbookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[assetID] = snap
	return nil
}

func (c *memBookCache) GetSnapshot(_ context.Context, assetID string) (domain.OrderbookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.books[assetID]
	if !ok {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

type memExecStore struct {
	mu       sync.Mutex
	outcomes []domain.ExecutionOutcome
}

func (s *memExecStore) Create(_ context.Context, outcome domain.ExecutionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

func (s *memExecStore) GetByID(_ context.Context, id string) (domain.ExecutionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.outcomes {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.ExecutionOutcome{}, domain.ErrNotFound
}

func (s *memExecStore) ListRecent(_ context.Context, limit int) ([]domain.ExecutionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.outcomes) {
		limit = len(s.outcomes)
	}
	return append([]domain.ExecutionOutcome(nil), s.outcomes[len(s.outcomes)-limit:]...), nil
}

func (s *memExecStore) ListBefore(_ context.Context, before time.Time) ([]domain.ExecutionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ExecutionOutcome
	for _, o := range s.outcomes {
		if o.StartedAt.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memExecStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.ExecutionOutcome
	var dropped int64
	for _, o := range s.outcomes {
		if o.StartedAt.Before(before) {
			dropped++
			continue
		}
		kept = append(kept, o)
	}
	s.outcomes = kept
	return dropped, nil
}

func TestScanCycleForwardsEventTextToOracle(t *testing.T) {
	ev := hedgeEvent()
	ev.Description = "Resolves YES for exactly one of the listed teams."
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100}
	feed := &fakeFeed{events: []domain.Event{ev}}
	oracle := &fakeOracle{verdict: true}
	eng, _, _, _ := newTestEngine(t, exch, feed, Config{}, func(d *Deps) {
		d.Oracle = oracle
	})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Executed)
	require.Len(t, oracle.descs, 1)
	assert.Equal(t, "Resolves YES for exactly one of the listed teams.", oracle.descs[0])
}

func TestNonExclusiveVerdictSkipsEvent(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	eng, _, _, _ := newTestEngine(t, exch, feed, Config{}, func(d *Deps) {
		d.Oracle = &fakeOracle{verdict: false}
	})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Candidates)
	assert.Empty(t, exch.postSeq)
}

func TestCachedBookScreenRejectsBeforeLiveFetch(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	// The mirrored book for one leg only covers 2 of the 5 required shares.
	cache := &memBookCache{books: map[string]domain.OrderbookSnapshot{
		"y-b": deepBook("y-b", 0.45, 0.05, 2),
	}}
	eng, _, _, _ := newTestEngine(t, exch, feed, Config{}, func(d *Deps) {
		d.Books = cache
	})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Rejected)
	assert.Empty(t, exch.postSeq)
	assert.Zero(t, exch.bookCalls, "rejection must come from the cache, not live books")
}

func TestCachedBookScreenPassesHealthyBooks(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	cache := &memBookCache{books: map[string]domain.OrderbookSnapshot{
		"y-a": deepBook("y-a", 0.30, 0.10, 1000),
		"y-b": deepBook("y-b", 0.45, 0.05, 1000),
	}}
	eng, _, _, _ := newTestEngine(t, exch, feed, Config{}, func(d *Deps) {
		d.Books = cache
	})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)

	// Cache misses are not verdicts; the live measurement still runs per leg.
	assert.Equal(t, 1, stats.Executed)
	assert.Equal(t, 3, exch.bookCalls)
}

func TestAmbiguousSubmissionMarksLegAndRollsBack(t *testing.T) {
	exch := &fakeExchange{books: hedgeBooks(1000), balance: 100, errToken: "y-c"}
	feed := &fakeFeed{events: []domain.Event{hedgeEvent()}}
	execs := &memExecStore{}
	eng, executed, _, memo := newTestEngine(t, exch, feed, Config{}, func(d *Deps) {
		d.Execs = execs
	})

	stats, err := eng.ScanCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RolledBack)

	require.Len(t, execs.outcomes, 1)
	legs := execs.outcomes[0].Legs
	require.NotEmpty(t, legs)
	last := legs[len(legs)-1]
	assert.False(t, last.Success)
	assert.Empty(t, last.OrderID)
	assert.Contains(t, last.Error, domain.ErrAmbiguousSubmission.Error())

	// Everything placed before the ambiguous leg is cancelled; the ambiguous
	// leg itself has no order ID to cancel.
	assert.ElementsMatch(t, exch.placed, exch.cancelled)
	assert.False(t, executed.Contains("ev-1"))
	assert.True(t, memo.Contains("ev-1"))
}
