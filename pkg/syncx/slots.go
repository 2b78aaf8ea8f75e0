package syncx

import "context"

// Slots bounds how many callers may run a section at once.
type Slots struct {
	sem chan struct{}
}

// NewSlots returns a pool with n slots; n below one is treated as one.
func NewSlots(n int) *Slots {
	return &Slots{sem: make(chan struct{}, max(n, 1))}
}

// Acquire blocks until a slot is free or ctx is done. The returned func
// releases the slot and must be called exactly once.
func (s *Slots) Acquire(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
