package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the unit of work the scheduler drives on a fixed interval.
// The tournament service implements it with its status sweep.
type Sweeper interface {
	SweepStatuses(ctx context.Context, now time.Time) error
}

// Clock abstracts time so tests can drive sweeps deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Scheduler runs the status sweep on a fixed interval until its context
// is cancelled. Failures are logged and the next tick retries; the
// sweep itself is idempotent.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
}

func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		clock:    realClock{},
		logger:   logger,
	}
}

// WithClock replaces the clock; test hook.
func (s *Scheduler) WithClock(clock Clock) *Scheduler {
	s.clock = clock
	return s
}

// Run sweeps immediately, then on every interval tick, and returns when
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("status sweep scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep at the current clock time.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now()
	if err := s.sweeper.SweepStatuses(ctx, now); err != nil {
		s.logger.Error("status sweep failed", slog.Any("error", err))
	}
}
