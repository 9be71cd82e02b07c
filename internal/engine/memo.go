package engine

import (
	"sync"
	"time"
)

// FailedEventMemo remembers events whose execution attempt failed so the next
// scan cycles skip them instead of retrying into the same book. Entries
// expire after a TTL and the memo is bounded; when full, the oldest entry is
// evicted.
type FailedEventMemo struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]time.Time
	now     func() time.Time
}

// NewFailedEventMemo builds a memo holding at most max entries for ttl each.
func NewFailedEventMemo(max int, ttl time.Duration) *FailedEventMemo {
	if max <= 0 {
		max = 256
	}
	return &FailedEventMemo{
		ttl:     ttl,
		max:     max,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Add records a failed event, evicting the oldest entry if the memo is full.
func (m *FailedEventMemo) Add(eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[eventID]; !ok && len(m.entries) >= m.max {
		var oldestID string
		var oldestAt time.Time
		for id, at := range m.entries {
			if oldestID == "" || at.Before(oldestAt) {
				oldestID, oldestAt = id, at
			}
		}
		delete(m.entries, oldestID)
	}
	m.entries[eventID] = m.now()
}

// Contains reports whether the event has a live (unexpired) failure entry.
// Expired entries are removed on read.
func (m *FailedEventMemo) Contains(eventID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	at, ok := m.entries[eventID]
	if !ok {
		return false
	}
	if m.ttl > 0 && m.now().Sub(at) > m.ttl {
		delete(m.entries, eventID)
		return false
	}
	return true
}

// Len returns the number of entries currently held, expired or not.
func (m *FailedEventMemo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
