package lease

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/sesame/internal/logging"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// DefaultTTL bounds how long a distributed lease survives a crashed owner.
const DefaultTTL = 30 * time.Second

// ReleaseFunc gives a lease back. It is safe to call more than once.
type ReleaseFunc func()

// entry tracks one held lease.
type entry struct {
	owner  string
	unlock ports.UnlockFunc // releases the distributed lock (if any)
}

// Manager hands out exclusive, non-reentrant leases keyed by resource.
type Manager struct {
	mu   sync.Mutex
	held map[string]*entry
	ttl  time.Duration

	locker ports.DistributedLocker // optional distributed locker
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker mirrors leases into a distributed locker.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithTTL sets the expiry of distributed leases.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a lease manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		held:   make(map[string]*entry),
		ttl:    DefaultTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire takes the leases for every key on behalf of owner. Either all
// keys are acquired or none is. Empty keys are ignored.
func (m *Manager) Acquire(ctx context.Context, owner string, keys ...string) (ReleaseFunc, error) {
	var taken []string
	rollback := func() {
		for _, k := range slices.Backward(taken) {
			m.release(ctx, k)
		}
	}
	for _, key := range keys {
		if key == "" || slices.Contains(taken, key) {
			continue
		}
		if err := m.acquire(ctx, owner, key); err != nil {
			rollback()
			return nil, err
		}
		taken = append(taken, key)
	}

	var once sync.Once
	return func() { once.Do(rollback) }, nil
}

func (m *Manager) acquire(ctx context.Context, owner, key string) error {
	m.mu.Lock()
	if e, exists := m.held[key]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is held by %s", domain.ErrResourceBusy, key, e.owner)
	}
	e := &entry{owner: owner}
	m.held[key] = e
	m.mu.Unlock()

	if m.locker == nil {
		return nil
	}
	unlock, err := m.locker.TryLock(ctx, key, m.ttl)
	if err != nil {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
		return fmt.Errorf("failed to acquire distributed lease on %s: %w", key, err)
	}
	m.mu.Lock()
	e.unlock = unlock
	m.mu.Unlock()
	return nil
}

func (m *Manager) release(ctx context.Context, key string) {
	m.mu.Lock()
	e, exists := m.held[key]
	if !exists {
		m.mu.Unlock()
		return
	}
	delete(m.held, key)
	m.mu.Unlock()

	if e.unlock != nil {
		if err := e.unlock(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("Failed to release distributed lease (will expire via TTL)",
				"key", key,
				"err", err,
			)
		}
	}
}

// Owner returns the owner of key, if it is held.
func (m *Manager) Owner(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.held[key]
	if !ok {
		return "", false
	}
	return e.owner, true
}

// Held returns the held keys, sorted.
func (m *Manager) Held() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.held))
	for k := range m.held {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
