// Package worker runs background jobs of the service.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/lock"
)

const sweepLockKey = "invitations:sweep"

// ExpirySweeper moves overdue pending invitations to expired
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically runs the invitation expiry sweep. With a shared Locker
// only one replica sweeps per tick.
type Sweeper struct {
	sweeper  ExpirySweeper
	locker   lock.Locker
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a new Sweeper
func NewSweeper(sweeper ExpirySweeper, locker lock.Locker, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		sweeper:  sweeper,
		locker:   locker,
		interval: interval,
		logger:   logger.Named("sweeper"),
	}
}

// Run sweeps on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep. It returns 0 without sweeping when another replica holds the lock.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	release, ok, err := s.locker.TryAcquire(ctx, sweepLockKey, s.interval)
	if err != nil {
		return 0, err
	}
	if !ok {
		s.logger.Debug("sweep skipped, lock held elsewhere")
		return 0, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	return s.sweeper.SweepExpired(ctx)
}
