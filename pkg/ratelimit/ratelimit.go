// Package ratelimit implements fixed-window counters backed by a shared
// store with an in-process fallback, and a sliding-log guard for low volume
// abuse-sensitive endpoints.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrUnknownScope is returned when a limiter is asked about a scope it has
// no rule for.
var ErrUnknownScope = errors.New("ratelimit: unknown scope")

// Rule caps how many requests an identifier may make per window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Valid reports whether the rule can be enforced.
func (r Rule) Valid() bool { return r.Limit > 0 && r.Window >= time.Second }

// Backend names which path served a decision.
type Backend string

const (
	BackendDistributed Backend = "distributed"
	BackendMemory      Backend = "memory"
	BackendLog         Backend = "log"
)

// Decision is the outcome of a single check. Over-limit is a normal
// outcome, never an error.
type Decision struct {
	Allowed           bool
	Limit             int
	Count             int64
	RetryAfterSeconds int
	Backend           Backend
}

// Checker is implemented by every limiter in this package.
type Checker interface {
	Check(ctx context.Context, scope, id string) (Decision, error)
}

// Counter atomically increments key and returns the new count. The first
// increment of a key must also set its expiry to ttl, in the same operation.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Observer is told about every decision; used for metrics.
type Observer func(scope string, d Decision)

// retryAfter returns the whole seconds until reset, clamped to [1, window].
func retryAfter(now, reset time.Time, window time.Duration) int {
	secs := int(math.Ceil(reset.Sub(now).Seconds()))
	upper := int(window / time.Second)
	if upper < 1 {
		upper = 1
	}
	return min(max(secs, 1), upper)
}
