// Package syncx holds small concurrency helpers shared by the service.
package syncx

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Lazy creates a value on first use. Concurrent first callers share a single
// in-flight initialisation. A successful result is kept for the life of the
// process; a failed one is retried by the next caller unless Sticky says the
// error is permanent.
type Lazy[T any] struct {
	init   func(ctx context.Context) (T, error)
	sticky func(error) bool

	group singleflight.Group

	mu    sync.RWMutex
	val   T
	ready bool
	err   error
}

// LazyOption configures a Lazy.
type LazyOption func(*lazyOptions)

type lazyOptions struct {
	sticky func(error) bool
}

// Sticky marks errors for which fn returns true as permanent. They are
// cached and returned to every later caller without re-running init.
func Sticky(fn func(error) bool) LazyOption {
	return func(o *lazyOptions) { o.sticky = fn }
}

// NewLazy returns a Lazy that builds its value with init.
func NewLazy[T any](init func(ctx context.Context) (T, error), opts ...LazyOption) *Lazy[T] {
	var o lazyOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Lazy[T]{init: init, sticky: o.sticky}
}

// Get returns the value, initialising it if needed. The initialiser runs on
// a context detached from the caller's cancellation, since its result is
// shared by every waiting caller.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if v, err, ok := l.cached(); ok {
		return v, err
	}

	res, err, _ := l.group.Do("init", func() (any, error) {
		if v, err, ok := l.cached(); ok {
			return v, err
		}

		v, err := l.init(context.WithoutCancel(ctx))

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			if l.sticky != nil && l.sticky(err) {
				l.err = err
			}
			return v, err
		}
		l.val, l.ready = v, true
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Peek returns the value only if it has already been created.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.val, l.ready
}

func (l *Lazy[T]) cached() (T, error, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var zero T
	switch {
	case l.ready:
		return l.val, nil, true
	case l.err != nil:
		return zero, l.err, true
	default:
		return zero, nil, false
	}
}
