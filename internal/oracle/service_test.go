package oracle

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/eventarb/internal/ledger"
)

type fakeClassifier struct {
	verdict  bool
	calls    int
	lastText string
}

func (f *fakeClassifier) Classify(_ context.Context, _, text string) (bool, error) {
	f.calls++
	f.lastText = text
	return f.verdict, nil
}

func newTestService(t *testing.T, c Classifier) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verdicts.log")
	kv, err := ledger.OpenKV(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewService(c, kv, slog.Default()), path
}

func TestIsExclusiveHeuristicShortCircuit(t *testing.T) {
	fake := &fakeClassifier{verdict: false}
	svc, _ := newTestService(t, fake)

	ok, err := svc.IsExclusive(context.Background(), "ev1", "Who will win the election?", "desc", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, fake.calls, "obvious events must not reach the classifier")
}

func TestIsExclusiveCachesClassifierVerdict(t *testing.T) {
	fake := &fakeClassifier{verdict: true}
	svc, path := newTestService(t, fake)

	ctx := context.Background()
	ok, err := svc.IsExclusive(ctx, "ev2", "Ambiguous event", "desc", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second call hits the in-memory memo.
	ok, err = svc.IsExclusive(ctx, "ev2", "Ambiguous event", "desc", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, fake.calls)

	// A fresh service over the same ledger file still avoids the classifier.
	kv, err := ledger.OpenKV(path)
	require.NoError(t, err)
	defer kv.Close()

	fake2 := &fakeClassifier{verdict: false}
	svc2 := NewService(fake2, kv, slog.Default())
	ok, err = svc2.IsExclusive(ctx, "ev2", "Ambiguous event", "desc", nil)
	require.NoError(t, err)
	assert.True(t, ok, "persisted verdict wins over classifier")
	assert.Zero(t, fake2.calls)
}

func TestClassifierReceivesEventText(t *testing.T) {
	fake := &fakeClassifier{verdict: true}
	svc, _ := newTestService(t, fake)

	_, err := svc.IsExclusive(context.Background(), "ev7", "Ambiguous event",
		"Resolves YES for exactly one listed team.", nil)
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)
	assert.Equal(t, "Ambiguous event\n\nResolves YES for exactly one listed team.", fake.lastText)

	// A missing description still yields a non-empty prompt.
	fake2 := &fakeClassifier{verdict: true}
	svc2, _ := newTestService(t, fake2)
	_, err = svc2.IsExclusive(context.Background(), "ev8", "Ambiguous event", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Ambiguous event", fake2.lastText)
}

func TestIsExclusiveNilClassifier(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ok, err := svc.IsExclusive(context.Background(), "ev3", "Ambiguous event", "desc", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
