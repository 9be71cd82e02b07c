package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLedgerAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executed.log")

	l, err := OpenSet(path)
	require.NoError(t, err)

	require.NoError(t, l.Append("event-1"))
	require.NoError(t, l.Append("event-2"))
	require.NoError(t, l.Append("event-1")) // duplicate is a no-op
	assert.True(t, l.Contains("event-1"))
	assert.False(t, l.Contains("event-3"))
	assert.Equal(t, 2, l.Len())
	require.NoError(t, l.Close())

	// Reopen: state survives the restart.
	l2, err := OpenSet(path)
	require.NoError(t, err)
	defer l2.Close()
	assert.True(t, l2.Contains("event-1"))
	assert.True(t, l2.Contains("event-2"))
	assert.Equal(t, 2, l2.Len())
}

func TestSetLedgerRejectsEmptyID(t *testing.T) {
	l, err := OpenSet(filepath.Join(t.TempDir(), "executed.log"))
	require.NoError(t, err)
	defer l.Close()

	assert.Error(t, l.Append("  "))
}

func TestKVLedgerLastWriteWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.log")

	l, err := OpenKV(path)
	require.NoError(t, err)

	require.NoError(t, l.Put("event-1", "true"))
	require.NoError(t, l.Put("event-2", "false"))
	require.NoError(t, l.Put("event-1", "false"))
	require.NoError(t, l.Close())

	l2, err := OpenKV(path)
	require.NoError(t, err)
	defer l2.Close()

	v, ok := l2.Get("event-1")
	require.True(t, ok)
	assert.Equal(t, "false", v)

	v, ok = l2.Get("event-2")
	require.True(t, ok)
	assert.Equal(t, "false", v)
	assert.Equal(t, 2, l2.Len())
}

func TestKVLedgerSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.log")
	require.NoError(t, os.WriteFile(path, []byte("event-1:true\ngarbage\n:novalue\n"), 0o644))

	l, err := OpenKV(path)
	require.NoError(t, err)
	defer l.Close()

	v, ok := l.Get("event-1")
	require.True(t, ok)
	assert.Equal(t, "true", v)
	assert.Equal(t, 1, l.Len())
}

func TestKVLedgerRejectsSeparatorInKey(t *testing.T) {
	l, err := OpenKV(filepath.Join(t.TempDir(), "verdicts.log"))
	require.NoError(t, err)
	defer l.Close()

	assert.Error(t, l.Put("bad:key", "x"))
	assert.Error(t, l.Put("", "x"))
}
