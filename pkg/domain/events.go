package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart  EventType = "run_start"
	EventRunEnd    EventType = "run_end"
	EventItemEnter EventType = "item_enter"
	EventItemLeave EventType = "item_leave"
	EventCleanup   EventType = "cleanup"
	EventPause     EventType = "pause"
	EventResume    EventType = "resume"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// RunEvent marks the start or end of a run.
type RunEvent struct {
	EventBase
	Start string `json:"start"`
	// Status is set on EventRunEnd.
	Status RunStatus `json:"status,omitempty"`
	// Err is set on EventRunEnd when the run failed.
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ItemEvent marks entry into or exit from one lifecycle phase of an item.
type ItemEvent struct {
	EventBase
	Item     string        `json:"item"`
	ItemType string        `json:"item_type"`
	Phase    Phase         `json:"phase"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`
}

// CleanupEvent reports one teardown callback.
type CleanupEvent struct {
	EventBase
	Label string `json:"label"`
	Err   error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil fields are skipped.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnRunEnd    func(context.Context, *RunEvent)
	OnItemEnter func(context.Context, *ItemEvent)
	OnItemLeave func(context.Context, *ItemEvent)
	OnCleanup   func(context.Context, *CleanupEvent)
	OnPause     func(context.Context, *EventBase)
}

// Merge returns hooks that call h first and then o.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart:  chain(h.OnRunStart, o.OnRunStart),
		OnRunEnd:    chain(h.OnRunEnd, o.OnRunEnd),
		OnItemEnter: chain(h.OnItemEnter, o.OnItemEnter),
		OnItemLeave: chain(h.OnItemLeave, o.OnItemLeave),
		OnCleanup:   chain(h.OnCleanup, o.OnCleanup),
		OnPause:     chain(h.OnPause, o.OnPause),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
