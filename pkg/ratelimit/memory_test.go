package ratelimit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := ratelimit.NewMemoryCounter(ratelimit.WithMemoryClock(clock.Now))

	n, err := m.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, _ = m.Incr(ctx, "k", time.Minute)
	require.EqualValues(t, 2, n)

	clock.Advance(time.Minute)
	n, _ = m.Incr(ctx, "k", time.Minute)
	require.EqualValues(t, 1, n, "expired entry restarts")
}

func TestMemoryCounter_SweepAndEviction(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := ratelimit.NewMemoryCounter(
		ratelimit.WithMemoryClock(clock.Now),
		ratelimit.WithMaxKeys(3),
		ratelimit.WithSweepEvery(time.Hour),
	)

	for i := range 5 {
		clock.Advance(time.Second)
		_, err := m.Incr(ctx, fmt.Sprintf("k%d", i), time.Minute)
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.Len())

	// The newest keys survive eviction.
	n, _ := m.Incr(ctx, "k4", time.Minute)
	require.EqualValues(t, 2, n)
	n, _ = m.Incr(ctx, "k0", time.Minute)
	require.EqualValues(t, 1, n)

	clock.Advance(2 * time.Minute)
	m.Sweep()
	require.Zero(t, m.Len())
}

func TestMemoryCounter_EvictsInBatches(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := ratelimit.NewMemoryCounter(
		ratelimit.WithMemoryClock(clock.Now),
		ratelimit.WithMaxKeys(100),
		ratelimit.WithSweepEvery(time.Hour),
	)

	incr := func(key string) int64 {
		t.Helper()
		clock.Advance(time.Millisecond)
		n, err := m.Incr(ctx, key, time.Minute)
		require.NoError(t, err)
		return n
	}

	for i := range 101 {
		incr(fmt.Sprintf("k%d", i))
	}
	require.Equal(t, 90, m.Len())

	// Room for ten more keys before the next eviction.
	for i := 101; i < 111; i++ {
		incr(fmt.Sprintf("k%d", i))
	}
	require.Equal(t, 100, m.Len())
	require.EqualValues(t, 2, incr("k11"), "oldest survivor of the first batch")
	require.EqualValues(t, 1, incr("k10"), "evicted in the first batch")
}
