package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testLocker(t *testing.T, l Locker) {
	ctx := context.Background()

	release, ok, err := l.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock must be exclusive")

	_, ok, err = l.TryAcquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different keys are independent")

	require.NoError(t, release(ctx))

	release, ok, err = l.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be free after release")
	require.NoError(t, release(ctx))
}

func TestMemoryLocker(t *testing.T) {
	testLocker(t, NewMemoryLocker())
}

func TestMemoryLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.clock = func() time.Time { return now }

	staleRelease, ok, err := l.TryAcquire(ctx, "sweep", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)

	_, ok, err = l.TryAcquire(ctx, "sweep", time.Second)
	require.NoError(t, err)
	require.True(t, ok, "expired lock can be taken over")

	// The previous holder must not free the new holder's lock
	require.NoError(t, staleRelease(ctx))
	_, ok, err = l.TryAcquire(ctx, "sweep", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLocker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	testLocker(t, NewRedisLocker(client))

	// Key expires on its own
	_, ok, err := NewRedisLocker(client).TryAcquire(ctx, "short", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		_, ok, err := NewRedisLocker(client).TryAcquire(ctx, "short", time.Minute)
		return err == nil && ok
	}, 2*time.Second, 50*time.Millisecond)
}
