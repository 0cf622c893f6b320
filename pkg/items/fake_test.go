package items_test

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/sesame/internal/logging"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/items"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
)

// world is the state shared by every frame of a fake run.
type world struct {
	globals   *vars.Store
	items     map[string]domain.Item
	files     map[string]string
	executed  []string
	shown     []domain.Canvas
	played    []domain.Sample
	logged    []domain.LogRow
	responses []domain.Response
	recorded  []bool
	cleanups  []string
	cleanupFn []func() error
	workspace map[string]any
	paused    []map[string]vars.Value
	running   bool
	rng       *rand.Rand
}

func newWorld() *world {
	return &world{
		globals:   vars.NewStore(),
		items:     make(map[string]domain.Item),
		files:     make(map[string]string),
		workspace: make(map[string]any),
		running:   true,
		rng:       rand.New(rand.NewPCG(1, 2)),
	}
}

func (w *world) add(it domain.Item) { w.items[it.Name()] = it }

// frame returns a context for running the named item at the top level.
func (w *world) frame(name string) *fakeRC {
	it := w.items[name]
	return &fakeRC{w: w, scope: vars.NewScope(it.Vars(), w.globals, false)}
}

// run prepares and runs name like an engine would.
func (w *world) run(ctx context.Context, name string) error {
	it, ok := w.items[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownItem, name)
	}
	rc := w.frame(name)
	if err := it.Prepare(ctx, rc); err != nil {
		return err
	}
	return it.Run(ctx, rc)
}

type fakeRC struct {
	w     *world
	scope *vars.Scope
}

func (f *fakeRC) Scope() *vars.Scope   { return f.scope }
func (f *fakeRC) Globals() *vars.Store { return f.w.globals }

func (f *fakeRC) Exec(ctx context.Context, name string) error {
	it, ok := f.w.items[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownItem, name)
	}
	f.w.executed = append(f.w.executed, name)
	child := &fakeRC{w: f.w, scope: f.scope.Child(it.Vars())}
	if err := it.Prepare(ctx, child); err != nil {
		return err
	}
	return it.Run(ctx, child)
}

func (f *fakeRC) ResolveFile(name string) (string, error) {
	if p, ok := f.w.files[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("not in pool: %s", name)
}

func (f *fakeRC) RegisterCleanup(label string, fn func() error) {
	f.w.cleanups = append(f.w.cleanups, label)
	f.w.cleanupFn = append(f.w.cleanupFn, fn)
}

func (f *fakeRC) Show(ctx context.Context, c domain.Canvas) error {
	f.w.shown = append(f.w.shown, c)
	return nil
}

func (f *fakeRC) Play(ctx context.Context, s domain.Sample) error {
	f.w.played = append(f.w.played, s)
	return nil
}

func (f *fakeRC) Collect(ctx context.Context, req domain.ResponseRequest) (domain.Response, error) {
	if len(f.w.responses) == 0 {
		return domain.Response{}, nil
	}
	r := f.w.responses[0]
	f.w.responses = f.w.responses[1:]
	return r, nil
}

func (f *fakeRC) Log(ctx context.Context, row domain.LogRow) error {
	f.w.logged = append(f.w.logged, row)
	return nil
}

func (f *fakeRC) RecordResponse(correct bool, rt time.Duration) {
	f.w.recorded = append(f.w.recorded, correct)
	v, _ := f.w.globals.Get(domain.VarTotalResponses)
	n, _ := v.Int64()
	f.w.globals.SetRuntime(domain.VarTotalResponses, vars.Int(n+1))
}

func (f *fakeRC) ResetFeedback() {
	f.w.globals.SetRuntime(domain.VarTotalResponses, vars.Int(0))
}

func (f *fakeRC) Workspace() map[string]any { return f.w.workspace }
func (f *fakeRC) Running() bool             { return f.w.running }
func (f *fakeRC) Rand() *rand.Rand          { return f.w.rng }
func (f *fakeRC) Now() time.Time            { return time.Unix(100, 0) }
func (f *fakeRC) Logger() *slog.Logger      { return logging.NewNop() }

func (f *fakeRC) Pause(ctx context.Context) error {
	f.w.paused = append(f.w.paused, items.WorkspaceVars(f.w.workspace))
	return nil
}

// mustItems parses text and constructs every item with the built-in registry.
func mustItems(w *world, text string) *script.Definition {
	def, err := script.Parse(text)
	if err != nil {
		panic(err)
	}
	reg := items.NewRegistry()
	for _, d := range def.Items {
		it, err := reg.Construct(d)
		if err != nil {
			panic(err)
		}
		w.add(it)
	}
	for name, v := range def.Globals.All() {
		w.globals.Set(name, v)
	}
	return def
}

// probe records its executions.
type probe struct {
	name string
	runs int
}

func (p *probe) Name() string                                     { return p.name }
func (p *probe) Type() string                                     { return "probe" }
func (p *probe) Vars() *vars.Store                                { return vars.NewStore() }
func (p *probe) Prepare(context.Context, domain.RunContext) error { return nil }
func (p *probe) ToText() string                                   { return "define probe " + p.name + "\n" }
func (p *probe) VarInfo() []domain.VarInfo                        { return nil }

func (p *probe) Run(context.Context, domain.RunContext) error {
	p.runs++
	return nil
}
