package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
	tags    []string
}

// Memory is an in-process Store bounded by an LRU. The tag index only holds
// keys the LRU still holds.
type Memory struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, memoryEntry]
	byTag map[string]map[string]struct{}
	now   func() time.Time
}

// NewMemory returns a Memory store holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	m := &Memory{byTag: map[string]map[string]struct{}{}, now: time.Now}
	l, err := lru.NewWithEvict[string, memoryEntry](size, m.evicted)
	if err != nil {
		return nil, err
	}
	m.lru = l
	return m, nil
}

// evicted is called by the LRU on eviction and on Remove, always from a
// method that holds m.mu.
func (m *Memory) evicted(key string, e memoryEntry) {
	m.untag(key, e.tags)
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.lru.Remove(key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.lru.Peek(key); ok {
		m.untag(key, old.tags)
	}
	e := memoryEntry{value: value, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	for _, t := range tags {
		keys := m.byTag[t]
		if keys == nil {
			keys = map[string]struct{}{}
			m.byTag[t] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (m *Memory) RemoveByTag(_ context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tags {
		for key := range m.byTag[t] {
			m.lru.Remove(key)
		}
		delete(m.byTag, t)
	}
	return nil
}

// Len returns the number of live and expired entries held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

func (m *Memory) untag(key string, tags []string) {
	for _, t := range tags {
		if keys := m.byTag[t]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.byTag, t)
			}
		}
	}
}
