package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/lock"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	target := &countingSweeper{}
	s := NewSweeper(target, lock.NewMemoryLocker(), time.Minute, zap.NewNop())

	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Lock is released after each sweep
	_, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), target.calls.Load())
}

func TestSweeper_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewMemoryLocker()
	release, ok, err := locker.TryAcquire(ctx, sweepLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = release(ctx) }()

	target := &countingSweeper{}
	n, err := NewSweeper(target, locker, time.Minute, zap.NewNop()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, target.calls.Load())
}

func TestSweeper_PropagatesErrors(t *testing.T) {
	target := &countingSweeper{err: errors.New("db down")}
	_, err := NewSweeper(target, lock.NewMemoryLocker(), time.Minute, zap.NewNop()).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	target := &countingSweeper{}
	s := NewSweeper(target, lock.NewMemoryLocker(), 10*time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
