package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SlidingLog keeps the timestamps of recent requests per key and rejects once
// the window already holds Limit of them. It is exact, process-local and
// meant for low volume endpoints such as verification mail requests.
type SlidingLog struct {
	rules map[string]Rule
	now   func() time.Time

	mu   sync.Mutex
	logs map[string][]time.Time
}

func NewSlidingLog(rules map[string]Rule, now func() time.Time) (*SlidingLog, error) {
	for scope, r := range rules {
		if !r.Valid() {
			return nil, fmt.Errorf("ratelimit: invalid rule for scope %q", scope)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &SlidingLog{rules: rules, now: now, logs: make(map[string][]time.Time)}, nil
}

func (s *SlidingLog) Check(_ context.Context, scope, id string) (Decision, error) {
	rule, ok := s.rules[scope]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}

	now := s.now()
	cutoff := now.Add(-rule.Window)
	key := scope + ":" + id

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.logs[key][:0]
	for _, ts := range s.logs[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rule.Limit {
		s.logs[key] = kept
		return Decision{
			Allowed:           false,
			Limit:             rule.Limit,
			Count:             int64(len(kept)),
			RetryAfterSeconds: retryAfter(now, kept[0].Add(rule.Window), rule.Window),
			Backend:           BackendLog,
		}, nil
	}

	kept = append(kept, now)
	s.logs[key] = kept
	return Decision{
		Allowed: true,
		Limit:   rule.Limit,
		Count:   int64(len(kept)),
		Backend: BackendLog,
	}, nil
}

// Sweep drops keys whose newest entry has aged out of every window.
func (s *SlidingLog) Sweep() {
	var longest time.Duration
	for _, r := range s.rules {
		longest = max(longest, r.Window)
	}
	cutoff := s.now().Add(-longest)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.logs {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(s.logs, k)
		}
	}
}

// Len returns the number of tracked keys.
func (s *SlidingLog) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}
