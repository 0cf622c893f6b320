package lease_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/lease"
	"github.com/aretw0/sesame/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Exclusive(t *testing.T) {
	m := lease.NewManager()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "run-1", "log:/tmp/a.csv", "pool:/tmp/pool")
	require.NoError(t, err)
	assert.Equal(t, []string{"log:/tmp/a.csv", "pool:/tmp/pool"}, m.Held())

	_, err = m.Acquire(ctx, "run-2", "pool:/tmp/pool")
	assert.ErrorIs(t, err, domain.ErrResourceBusy)

	// Non-reentrant: the same owner is refused too.
	_, err = m.Acquire(ctx, "run-1", "log:/tmp/a.csv")
	assert.ErrorIs(t, err, domain.ErrResourceBusy)

	release()
	release()
	assert.Empty(t, m.Held())

	release, err = m.Acquire(ctx, "run-2", "pool:/tmp/pool")
	require.NoError(t, err)
	owner, ok := m.Owner("pool:/tmp/pool")
	assert.True(t, ok)
	assert.Equal(t, "run-2", owner)
	release()
}

func TestManager_AllOrNothing(t *testing.T) {
	m := lease.NewManager()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "a", "k2")
	require.NoError(t, err)
	defer release()

	_, err = m.Acquire(ctx, "b", "k1", "k2", "k3")
	assert.ErrorIs(t, err, domain.ErrResourceBusy)
	assert.Equal(t, []string{"k2"}, m.Held())
}

func TestManager_ConcurrentAcquire(t *testing.T) {
	m := lease.NewManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(ctx, fmt.Sprint(i), "shared"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   map[string]bool
	unlocked []string
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked[key] {
		return nil, domain.ErrResourceBusy
	}
	f.locked[key] = true
	return func(ctx context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.locked, key)
		f.unlocked = append(f.unlocked, key)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{locked: map[string]bool{"remote": true}}
	m := lease.NewManager(lease.WithLocker(locker), lease.WithTTL(time.Second))
	ctx := context.Background()

	_, err := m.Acquire(ctx, "run", "local", "remote")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrResourceBusy))
	assert.Empty(t, m.Held())
	assert.Equal(t, []string{"local"}, locker.unlocked)

	release, err := m.Acquire(ctx, "run", "local")
	require.NoError(t, err)
	release()
	assert.Equal(t, []string{"local", "local"}, locker.unlocked)
}
