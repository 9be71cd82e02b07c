package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFailedEventMemoExpires(t *testing.T) {
	memo := NewFailedEventMemo(10, time.Minute)
	clock := time.Now()
	memo.now = func() time.Time { return clock }

	memo.Add("ev-1")
	assert.True(t, memo.Contains("ev-1"))

	clock = clock.Add(2 * time.Minute)
	assert.False(t, memo.Contains("ev-1"))
	assert.Equal(t, 0, memo.Len())
}

func TestFailedEventMemoEvictsOldest(t *testing.T) {
	memo := NewFailedEventMemo(3, time.Hour)
	clock := time.Now()
	memo.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		memo.Add(fmt.Sprintf("ev-%d", i))
		clock = clock.Add(time.Second)
	}
	memo.Add("ev-3")

	assert.Equal(t, 3, memo.Len())
	assert.False(t, memo.Contains("ev-0"))
	assert.True(t, memo.Contains("ev-3"))
}

func TestFailedEventMemoReAddRefreshes(t *testing.T) {
	memo := NewFailedEventMemo(10, time.Minute)
	clock := time.Now()
	memo.now = func() time.Time { return clock }

	memo.Add("ev-1")
	clock = clock.Add(50 * time.Second)
	memo.Add("ev-1")
	clock = clock.Add(30 * time.Second)

	assert.True(t, memo.Contains("ev-1"))
}
