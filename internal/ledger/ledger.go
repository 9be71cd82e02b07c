// Package ledger provides the durable append-only files the engine uses to
// survive restarts: a set ledger of executed event IDs (one per line) and a
// key:value ledger for cached oracle verdicts. Appends are flushed per write;
// the files are only ever appended to, so a crash can at worst lose the last
// in-flight line, never corrupt earlier entries.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// SetLedger is an append-only ledger of string IDs with an in-memory index.
type SetLedger struct {
	mu   sync.Mutex
	path string
	file *os.File
	seen map[string]struct{}
}

// OpenSet opens (or creates) the set ledger at path and loads all previously
// recorded IDs into memory.
func OpenSet(path string) (*SetLedger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			seen[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}

	return &SetLedger{path: path, file: f, seen: seen}, nil
}

// Contains reports whether id has been recorded.
func (l *SetLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

// Append records id durably. Recording an already-present ID is a no-op.
func (l *SetLedger) Append(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("ledger: empty id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return nil
	}
	if _, err := fmt.Fprintln(l.file, id); err != nil {
		return fmt.Errorf("ledger: append %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("ledger: sync %s: %w", l.path, err)
	}
	l.seen[id] = struct{}{}
	return nil
}

// Len returns the number of recorded IDs.
func (l *SetLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Close closes the underlying file.
func (l *SetLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// KVLedger is an append-only "key:value" ledger. The last appended value for
// a key wins, so updates are expressed as re-appends rather than rewrites.
type KVLedger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	values map[string]string
}

// OpenKV opens (or creates) the key:value ledger at path and replays it into
// memory. Malformed lines are skipped rather than failing the open, so a
// truncated final line after a crash does not take the ledger down.
func OpenKV(path string) (*KVLedger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			continue
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}

	return &KVLedger{path: path, file: f, values: values}, nil
}

// Get returns the latest value recorded for key.
func (l *KVLedger) Get(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.values[key]
	return v, ok
}

// Put records key:value durably. Keys must not contain the separator.
func (l *KVLedger) Put(key, value string) error {
	if key == "" || strings.Contains(key, ":") {
		return fmt.Errorf("ledger: invalid key %q", key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.values[key]; ok && prev == value {
		return nil
	}
	if _, err := fmt.Fprintf(l.file, "%s:%s\n", key, value); err != nil {
		return fmt.Errorf("ledger: append %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("ledger: sync %s: %w", l.path, err)
	}
	l.values[key] = value
	return nil
}

// Len returns the number of distinct keys.
func (l *KVLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// Close closes the underlying file.
func (l *KVLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
