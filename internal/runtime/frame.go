package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/vars"
)

// Frame is the RunContext of one executing item. Exec creates a child frame
// whose scope nests inside the parent's.
type Frame struct {
	run   *run
	item  domain.Item
	scope *vars.Scope
}

var _ domain.RunContext = (*Frame)(nil)

func (f *Frame) Scope() *vars.Scope   { return f.scope }
func (f *Frame) Globals() *vars.Store { return f.run.globals }

// Item returns the executing item, or nil for the root frame.
func (f *Frame) Item() domain.Item { return f.item }

// Exec prepares and then runs the named item in a child frame. Failures are
// returned as *domain.RuntimeError naming the innermost failing item.
func (f *Frame) Exec(ctx context.Context, name string) error {
	it, ok := f.run.tree.Get(name)
	if !ok {
		return &domain.RuntimeError{Item: name, Phase: domain.PhasePrepare, Err: domain.ErrUnknownItem}
	}
	var scope *vars.Scope
	if f.item == nil {
		scope = vars.NewScope(it.Vars(), f.run.globals, f.run.transparent)
	} else {
		scope = f.scope.Child(it.Vars())
	}
	child := &Frame{run: f.run, item: it, scope: scope}

	if err := f.run.phase(ctx, child, domain.PhasePrepare, it.Prepare); err != nil {
		return err
	}
	return f.run.phase(ctx, child, domain.PhaseRun, it.Run)
}

func (r *run) phase(ctx context.Context, f *Frame, phase domain.Phase, fn func(context.Context, domain.RunContext) error) error {
	hooks := r.engine.hooks
	it := f.item
	begin := r.engine.now()
	ev := &domain.ItemEvent{
		EventBase: domain.EventBase{Timestamp: begin, Type: domain.EventItemEnter, RunID: r.id},
		Item:      it.Name(),
		ItemType:  it.Type(),
		Phase:     phase,
	}
	if hooks.OnItemEnter != nil {
		hooks.OnItemEnter(ctx, ev)
	}
	r.logger.Debug("Item phase", "item", it.Name(), "type", it.Type(), "phase", phase)

	err := fn(ctx, f)

	if hooks.OnItemLeave != nil {
		end := r.engine.now()
		hooks.OnItemLeave(ctx, &domain.ItemEvent{
			EventBase: domain.EventBase{Timestamp: end, Type: domain.EventItemLeave, RunID: r.id},
			Item:      it.Name(),
			ItemType:  it.Type(),
			Phase:     phase,
			Err:       err,
			Duration:  end.Sub(begin),
		})
	}
	if err == nil {
		return nil
	}
	var rerr *domain.RuntimeError
	if errors.As(err, &rerr) {
		return err
	}
	return &domain.RuntimeError{Item: it.Name(), Phase: phase, Err: err}
}

func (f *Frame) ResolveFile(name string) (string, error) {
	if f.run.pool == nil {
		return "", fmt.Errorf("no file pool: %s", name)
	}
	return f.run.pool.Path(name)
}

func (f *Frame) RegisterCleanup(label string, fn func() error) {
	f.run.cleanups = append(f.run.cleanups, cleanup{label: label, fn: fn})
}

func (f *Frame) Show(ctx context.Context, c domain.Canvas) error {
	return f.run.engine.display.Show(ctx, c)
}

func (f *Frame) Play(ctx context.Context, s domain.Sample) error {
	return f.run.engine.sound.Play(ctx, s)
}

func (f *Frame) Collect(ctx context.Context, req domain.ResponseRequest) (domain.Response, error) {
	return f.run.engine.responder.Collect(ctx, req)
}

func (f *Frame) Log(ctx context.Context, row domain.LogRow) error {
	return f.run.log.Append(row)
}

func (f *Frame) RecordResponse(correct bool, rt time.Duration) { f.run.recordResponse(correct, rt) }
func (f *Frame) ResetFeedback()                                { f.run.resetFeedback() }
func (f *Frame) Workspace() map[string]any                     { return f.run.workspace }
func (f *Frame) Running() bool                                 { return f.run.engine.running.Load() }
func (f *Frame) Rand() *rand.Rand                              { return f.run.engine.rng }
func (f *Frame) Now() time.Time                                { return f.run.engine.now() }

func (f *Frame) Pause(ctx context.Context) error {
	name := ""
	if f.item != nil {
		name = f.item.Name()
	}
	return f.run.pause(ctx, name, f.scope)
}

func (f *Frame) Logger() *slog.Logger {
	if f.item == nil {
		return f.run.logger
	}
	return f.run.logger.With("item", f.item.Name())
}
