package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock acquired from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker provides exclusive ownership of keys (log paths, pool
// folders) across processes.
type DistributedLocker interface {
	// TryLock acquires the lock for key without waiting. It returns
	// domain.ErrResourceBusy when another owner holds it. The lock expires
	// after ttl unless released first; the returned UnlockFunc MUST be called.
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
