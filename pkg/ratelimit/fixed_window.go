package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// FixedWindow counts requests per (scope, id) in aligned windows. Counts go to
// the distributed Counter when one is configured; after a backend failure
// the limiter serves from its in-process MemoryCounter for a cooldown period
// before trying the distributed store again.
type FixedWindow struct {
	rules    map[string]Rule
	primary  Counter
	fallback *MemoryCounter

	buffer   time.Duration
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger
	observe  Observer

	mu        sync.Mutex
	downUntil time.Time
}

// FixedWindowOption configures a FixedWindow.
type FixedWindowOption func(*FixedWindow)

// WithDistributed sets the primary counter. Without it every decision is
// served from memory.
func WithDistributed(c Counter) FixedWindowOption {
	return func(l *FixedWindow) { l.primary = c }
}

// WithFallback replaces the default in-process counter.
func WithFallback(m *MemoryCounter) FixedWindowOption {
	return func(l *FixedWindow) { l.fallback = m }
}

// WithCooldown sets how long the distributed path is skipped after an error.
func WithCooldown(d time.Duration) FixedWindowOption {
	return func(l *FixedWindow) { l.cooldown = d }
}

// WithExpiryBuffer is added to the window when setting counter expiry.
func WithExpiryBuffer(d time.Duration) FixedWindowOption {
	return func(l *FixedWindow) { l.buffer = d }
}

func WithClock(now func() time.Time) FixedWindowOption {
	return func(l *FixedWindow) { l.now = now }
}

func WithLogger(logger *slog.Logger) FixedWindowOption {
	return func(l *FixedWindow) { l.logger = logger }
}

func WithObserver(o Observer) FixedWindowOption {
	return func(l *FixedWindow) { l.observe = o }
}

// NewFixedWindow returns a limiter enforcing rules, keyed by scope name.
func NewFixedWindow(rules map[string]Rule, opts ...FixedWindowOption) (*FixedWindow, error) {
	for scope, r := range rules {
		if !r.Valid() {
			return nil, fmt.Errorf("ratelimit: invalid rule for scope %q", scope)
		}
	}

	l := &FixedWindow{
		rules:    rules,
		buffer:   5 * time.Second,
		cooldown: 30 * time.Second,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback == nil {
		l.fallback = NewMemoryCounter(WithMemoryClock(l.now))
	}
	return l, nil
}

// Rule returns the configured rule for scope.
func (l *FixedWindow) Rule(scope string) (Rule, bool) {
	r, ok := l.rules[scope]
	return r, ok
}

// Fallback exposes the in-process counter so housekeeping can sweep it.
func (l *FixedWindow) Fallback() *MemoryCounter { return l.fallback }

// Check counts one request for id under scope.
func (l *FixedWindow) Check(ctx context.Context, scope, id string) (Decision, error) {
	rule, ok := l.rules[scope]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}

	now := l.now()
	secs := int64(rule.Window / time.Second)
	start := time.Unix(now.Unix()/secs*secs, 0)
	reset := start.Add(rule.Window)
	key := scope + ":" + id + ":" + strconv.FormatInt(start.Unix(), 10)
	ttl := rule.Window + l.buffer

	count, backend := l.incr(ctx, key, ttl, now)

	d := Decision{
		Allowed: count <= int64(rule.Limit),
		Limit:   rule.Limit,
		Count:   count,
		Backend: backend,
	}
	if !d.Allowed {
		d.RetryAfterSeconds = retryAfter(now, reset, rule.Window)
	}

	if l.observe != nil {
		l.observe(scope, d)
	}
	return d, nil
}

func (l *FixedWindow) incr(ctx context.Context, key string, ttl time.Duration, now time.Time) (int64, Backend) {
	if l.primary != nil && l.distributedUp(now) {
		n, err := l.primary.Incr(ctx, key, ttl)
		if err == nil {
			return n, BackendDistributed
		}

		l.mu.Lock()
		l.downUntil = now.Add(l.cooldown)
		l.mu.Unlock()

		l.logger.Warn("rate limit backend unavailable, using in-process counters",
			slog.Any("error", err),
			slog.Duration("cooldown", l.cooldown),
		)
	}

	n, _ := l.fallback.Incr(ctx, key, ttl)
	return n, BackendMemory
}

func (l *FixedWindow) distributedUp(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !now.Before(l.downUntil)
}
