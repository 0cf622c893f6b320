package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sesame/pkg/adapters/redis"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/lease"
	"github.com/aretw0/sesame/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.DistributedLocker = (*redis.Locker)(nil)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.TryLock(ctx, "log:/data/subject-1.csv", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:log:/data/subject-1.csv"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:log:/data/subject-1.csv"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker1.TryLock(ctx, "pool", 5*time.Second)
	require.NoError(t, err)

	_, err = locker2.TryLock(ctx, "pool", 5*time.Second)
	assert.ErrorIs(t, err, domain.ErrResourceBusy)

	require.NoError(t, unlock1(ctx))
	unlock2, err := locker2.TryLock(ctx, "pool", 5*time.Second)
	require.NoError(t, err)
	defer unlock2(ctx)
	assert.True(t, mr.Exists("test:lock:pool"))
}

func TestRedisLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock2, err := locker.TryLock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	// The first owner's release must not delete the second owner's lock.
	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("test:lock:k"))
	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("test:lock:k"))
}

func TestRedisLocker_BacksLeaseManager(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	// Two processes share the Redis instance but not the in-process manager.
	m1 := lease.NewManager(lease.WithLocker(redis.NewLocker(client, "test:")))
	m2 := lease.NewManager(lease.WithLocker(redis.NewLocker(client, "test:")))

	release, err := m1.Acquire(ctx, "run-1", "pool:/shared")
	require.NoError(t, err)

	_, err = m2.Acquire(ctx, "run-2", "pool:/shared")
	assert.ErrorIs(t, err, domain.ErrResourceBusy)

	release()
	release2, err := m2.Acquire(ctx, "run-2", "pool:/shared")
	require.NoError(t, err)
	release2()
}
