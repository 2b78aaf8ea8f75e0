package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/store"
)

// DefaultTokenRetention is how long expired verification tokens are kept
// for audit before they are pruned.
const DefaultTokenRetention = 90 * 24 * time.Hour

// Sweeper is anything holding in-process state that needs periodic trimming,
// such as the in-memory rate-limit maps.
type Sweeper interface {
	Sweep()
}

// HousekeepingService periodically prunes old verification tokens and
// sweeps in-process limiter state.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Sweepers  []Sweeper
	Now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour and a non-positive retention to 90 days.
func NewHousekeepingService(
	st store.Store,
	logger *slog.Logger,
	interval, retention time.Duration,
	sweepers ...Sweeper,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = DefaultTokenRetention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		Sweepers:  sweepers,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure in one does
// not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	cutoff := nowFrom(s.Now).Add(-s.Retention)

	n, err := s.Store.VerificationTokens().DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to prune verification tokens", "error", err)
	} else {
		s.Logger.Debug("pruned verification tokens", "deleted", n, "cutoff", cutoff)
	}

	for _, sw := range s.Sweepers {
		sw.Sweep()
	}

	s.Logger.Info("housekeeping cleanup completed", "tokens_deleted", n, "sweepers", len(s.Sweepers))
}
