package feed

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

type fakeLister struct {
	events []domain.Event
}

func (f *fakeLister) ListEvents(_ context.Context, limit, offset int) ([]domain.Event, error) {
	if offset >= len(f.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.events) {
		end = len(f.events)
	}
	return f.events[offset:end], nil
}

type fakeStream struct {
	mu       sync.Mutex
	subs     [][]string
	handlers []func(domain.OrderbookSnapshot)
}

func (f *fakeStream) SubscribeBooks(assetIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, assetIDs)
	return nil
}

func (f *fakeStream) OnBook(h func(domain.OrderbookSnapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
}

func (f *fakeStream) emit(snap domain.OrderbookSnapshot) {
	f.mu.Lock()
	handlers := f.handlers
	f.mu.Unlock()
	for _, h := range handlers {
		h(snap)
	}
}

type memBookCache struct {
	mu    sync.Mutex
	snaps map[string]domain.OrderbookSnapshot
}

func newMemBookCache() *memBookCache {
	return &memBookCache{snaps: make(map[string]domain.OrderbookSnapshot)}
}

func (c *memBookCache) SetSnapshot(_ context.Context, assetID string, snap domain.OrderbookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[assetID] = snap
	return nil
}

func (c *memBookCache) GetSnapshot(_ context.Context, assetID string) (domain.OrderbookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[assetID]
	if !ok {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func feedEvent() domain.Event {
	return domain.Event{
		ID: "ev-1",
		Markets: []domain.Market{
			{ID: "m1", YesTokenID: "y1", NoTokenID: "n1", Active: true},
			{ID: "m2", YesTokenID: "y2", NoTokenID: "n2", Active: true},
			{ID: "m3", YesTokenID: "y3", NoTokenID: "n3", Active: false},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshSubscribesActiveTokensOnce(t *testing.T) {
	stream := &fakeStream{}
	f := New(Config{}, &fakeLister{events: []domain.Event{feedEvent()}}, stream, newMemBookCache(), testLogger())

	require.NoError(t, f.refresh(context.Background()))
	require.Len(t, stream.subs, 1)
	assert.ElementsMatch(t, []string{"y1", "n1", "y2", "n2"}, stream.subs[0])

	// A second refresh with the same events subscribes nothing new.
	require.NoError(t, f.refresh(context.Background()))
	assert.Len(t, stream.subs, 1)
}

func TestRunWritesSnapshotsThrough(t *testing.T) {
	stream := &fakeStream{}
	cache := newMemBookCache()
	f := New(Config{RefreshInterval: time.Hour}, &fakeLister{events: []domain.Event{feedEvent()}}, stream, cache, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	// Wait for the handler to be registered by Run.
	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return len(stream.handlers) > 0
	}, time.Second, 10*time.Millisecond)

	stream.emit(domain.OrderbookSnapshot{AssetID: "y1", BestBid: 0.29, BestAsk: 0.31})

	snap, err := cache.GetSnapshot(context.Background(), "y1")
	require.NoError(t, err)
	assert.Equal(t, 0.31, snap.BestAsk)

	cancel()
	<-done
}
