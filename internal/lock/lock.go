// Package lock provides a short-lived mutual exclusion lock shared between service replicas.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Release frees a held lock. Releasing a lock that already expired is a no-op.
type Release func(ctx context.Context) error

// Locker acquires named locks with a TTL without blocking.
type Locker interface {
	// TryAcquire returns ok=false when the lock is held by someone else.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error)
}

// MemoryLocker is a process-local Locker used when Redis is not configured.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]entry
	clock func() time.Time
}

type entry struct {
	token   string
	expires time.Time
}

// NewMemoryLocker creates a new MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]entry),
		clock: time.Now,
	}
}

// TryAcquire implements Locker
func (l *MemoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (Release, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.held[key] = entry{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
		return nil
	}, true, nil
}
