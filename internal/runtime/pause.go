package runtime

import (
	"context"
	"maps"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/items"
	"github.com/aretw0/sesame/pkg/vars"
)

// PauseState is published when a run pauses and when it resumes.
type PauseState struct {
	Paused bool              `json:"paused"`
	Item   string            `json:"item,omitempty"`
	Vars   map[string]string `json:"vars,omitempty"`
}

// Paused returns the current pause state, if the run is paused.
func (e *Engine) Paused() (PauseState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused == nil {
		return PauseState{}, false
	}
	st := *e.paused
	st.Vars = maps.Clone(st.Vars)
	return st, true
}

// Resume releases a paused run. It reports whether a run was paused.
func (e *Engine) Resume() bool {
	if _, ok := e.Paused(); !ok {
		return false
	}
	select {
	case e.resume <- struct{}{}:
	default:
	}
	return true
}

func (e *Engine) setPaused(st *PauseState) {
	e.mu.Lock()
	e.paused = st
	e.mu.Unlock()
}

// pause publishes the visible variables and the script workspace, then
// blocks until Resume or ctx is done.
func (r *run) pause(ctx context.Context, item string, scope *vars.Scope) error {
	e := r.engine
	if e.pauses == nil {
		r.logger.Debug("Cannot pause without a pause channel")
		return nil
	}

	st := PauseState{Paused: true, Item: item, Vars: make(map[string]string)}
	for name, v := range scope.Visible() {
		st.Vars[name] = v.Text()
	}
	for name, v := range items.WorkspaceVars(r.workspace) {
		st.Vars[name] = v.Text()
	}
	// Drop a stale resume signal.
	select {
	case <-e.resume:
	default:
	}
	e.setPaused(&st)
	r.notify(ctx, domain.EventPause)
	r.logger.Info("Experiment paused", "item", item)

	select {
	case e.pauses <- st:
	case <-ctx.Done():
	}

	var err error
	select {
	case <-e.resume:
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.setPaused(nil)
	r.notify(ctx, domain.EventResume)
	select {
	case e.pauses <- PauseState{Item: item}:
	case <-ctx.Done():
	}
	r.logger.Info("Experiment resumed", "item", item)
	return err
}

func (r *run) notify(ctx context.Context, typ domain.EventType) {
	if hook := r.engine.hooks.OnPause; hook != nil {
		hook(ctx, &domain.EventBase{Timestamp: r.engine.now(), Type: typ, RunID: r.id})
	}
}
