package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Memory implements Backend in process memory. Instances sharing one Memory
// see each other's writes through Watch, which makes it the backing for
// ephemeral runs and for multi-instance tests.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	writes  map[string]int
	failErr error
	subs    map[int]chan string
	nextSub int
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		data:   make(map[string][]byte),
		writes: make(map[string]int),
		subs:   make(map[int]chan string),
	}
}

// FailWrites makes every subsequent Set and Remove return err.
// A nil err restores normal behaviour.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// Writes returns how many successful Set calls key has received.
func (m *Memory) Writes(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("storage: get %s: %w", key, ErrNotExist)
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value and notifies watchers.
func (m *Memory) Set(key string, value []byte) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	if m.failErr != nil {
		err := m.failErr
		m.mu.Unlock()
		return fmt.Errorf("storage: set %s: %w", key, err)
	}
	m.data[key] = append([]byte(nil), value...)
	m.writes[key]++
	m.broadcastLocked(key)
	m.mu.Unlock()
	return nil
}

// Remove deletes key and notifies watchers if it existed.
func (m *Memory) Remove(key string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return fmt.Errorf("storage: remove %s: %w", key, m.failErr)
	}
	if _, ok := m.data[key]; ok {
		delete(m.data, key)
		m.broadcastLocked(key)
	}
	return nil
}

// Keys lists the stored keys in lexical order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) broadcastLocked(key string) {
	for _, ch := range m.subs {
		select {
		case ch <- key:
		default:
			// Watcher is behind; it will catch up on the next write.
		}
	}
}

// Watch delivers keys written through this Memory until ctx is cancelled.
func (m *Memory) Watch(ctx context.Context, logger *slog.Logger, cb ChangeFunc) error {
	ch := make(chan string, 64)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()

	logger.Debug("watcher: memory subscribed", slog.Int("id", id))
	for {
		select {
		case <-ctx.Done():
			return nil
		case key := <-ch:
			if cb != nil {
				cb(key)
			}
		}
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
