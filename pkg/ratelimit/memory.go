package ratelimit

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryCounter is the process-local Counter used when the distributed store
// is unavailable. Entries expire with their window and the map is bounded.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	maxKeys int
	now     func() time.Time

	sweepEvery time.Duration
	lastSweep  time.Time
}

type memoryEntry struct {
	count     int64
	createdAt time.Time
	expiresAt time.Time
}

// MemoryOption configures a MemoryCounter.
type MemoryOption func(*MemoryCounter)

// WithMaxKeys bounds the number of live keys; the oldest are evicted first.
func WithMaxKeys(n int) MemoryOption {
	return func(m *MemoryCounter) {
		if n > 0 {
			m.maxKeys = n
		}
	}
}

// WithSweepEvery sets how often Incr opportunistically drops expired keys.
func WithSweepEvery(d time.Duration) MemoryOption {
	return func(m *MemoryCounter) {
		if d > 0 {
			m.sweepEvery = d
		}
	}
}

// WithMemoryClock overrides time.Now, for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCounter) { m.now = now }
}

func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	m := &MemoryCounter{
		entries:    make(map[string]*memoryEntry),
		maxKeys:    10_000,
		now:        time.Now,
		sweepEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

func (m *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= m.sweepEvery {
		m.sweepLocked(now)
	}

	ent, ok := m.entries[key]
	if !ok || !now.Before(ent.expiresAt) {
		ent = &memoryEntry{createdAt: now, expiresAt: now.Add(ttl)}
		m.entries[key] = ent
		if len(m.entries) > m.maxKeys {
			m.evictLocked(key)
		}
	}
	ent.count++
	return ent.count, nil
}

// Sweep drops expired keys and enforces the key bound.
func (m *MemoryCounter) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(m.now())
}

// Len returns the number of tracked keys.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCounter) sweepLocked(now time.Time) {
	m.lastSweep = now
	for k, ent := range m.entries {
		if !now.Before(ent.expiresAt) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) > m.maxKeys {
		m.evictLocked("")
	}
}

// evictLocked removes the oldest entries until the map is back under its low
// water mark (90% of maxKeys), never touching keep. Evicting in batches keeps
// the sort off the path of every new key once the map is full.
func (m *MemoryCounter) evictLocked(keep string) {
	target := m.maxKeys - m.maxKeys/10
	type aged struct {
		key       string
		createdAt time.Time
	}
	all := make([]aged, 0, len(m.entries))
	for k, ent := range m.entries {
		if k != keep {
			all = append(all, aged{k, ent.createdAt})
		}
	}
	slices.SortFunc(all, func(a, b aged) int { return a.createdAt.Compare(b.createdAt) })

	for _, a := range all {
		if len(m.entries) <= target {
			return
		}
		delete(m.entries, a.key)
	}
}
