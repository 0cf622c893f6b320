package runtime

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/lease"
	"github.com/aretw0/sesame/pkg/ports"
)

// Option configures the Engine.
type Option func(*Engine)

// WithDisplay sets the display collaborator.
func WithDisplay(d ports.Display) Option {
	return func(e *Engine) {
		e.display = d
	}
}

// WithSound sets the sound collaborator.
func WithSound(s ports.Sound) Option {
	return func(e *Engine) {
		e.sound = s
	}
}

// WithResponder sets the response collaborator.
func WithResponder(r ports.Responder) Option {
	return func(e *Engine) {
		e.responder = r
	}
}

// WithLogOpener sets how the data log is opened.
func WithLogOpener(open ports.LogOpener) Option {
	return func(e *Engine) {
		e.openLog = open
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRecordStore persists a run record before the start item executes and
// updates it after teardown.
func WithRecordStore(store ports.RecordStore) Option {
	return func(e *Engine) {
		e.records = store
	}
}

// WithLease sets the manager guarding the log path and pool folder.
func WithLease(m *lease.Manager) Option {
	return func(e *Engine) {
		e.leases = m
	}
}

// WithPauseChannel receives the variable context whenever a run pauses and
// a resumed notice afterwards. Without it, pausing is a no-op.
func WithPauseChannel(ch chan<- PauseState) Option {
	return func(e *Engine) {
		e.pauses = ch
	}
}

// WithRand sets the random source used for randomized item order.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithVersion sets the version recorded into the globals of every run.
func WithVersion(version, codename string) Option {
	return func(e *Engine) {
		e.version = version
		e.codename = codename
	}
}
