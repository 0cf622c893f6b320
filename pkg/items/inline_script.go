package items

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// TypeInlineScript is the type name of inline_script items.
const TypeInlineScript = "inline_script"

// Variables holding the script phases.
const (
	varPrepare = "_prepare"
	varRun     = "_run"
)

// InlineScript runs Starlark code in the prepare and run phases.
//
// Scripts see two predeclared modules: exp (experiment-wide operations) and
// self (the item's own variables). Top-level bindings persist in the run
// workspace and are visible to every later script.
type InlineScript struct {
	Base
	prepareFile *syntax.File
	runFile     *syntax.File
}

// NewInlineScript builds an inline_script from its definition.
func NewInlineScript(def script.ItemDef) (domain.Item, error) {
	s := &InlineScript{Base: newBase(def)}
	for _, name := range []string{varPrepare, varRun} {
		if !s.store.Has(name) {
			s.store.Set(name, vars.String(""))
		}
	}
	return s, nil
}

// Prepare parses both phases and executes the prepare phase.
func (s *InlineScript) Prepare(ctx context.Context, rc domain.RunContext) error {
	var err error
	if s.prepareFile, err = s.parse(varPrepare); err != nil {
		return err
	}
	if s.runFile, err = s.parse(varRun); err != nil {
		return err
	}
	return s.exec(ctx, rc, s.prepareFile)
}

func (s *InlineScript) Run(ctx context.Context, rc domain.RunContext) error {
	if s.runFile == nil {
		return fmt.Errorf("inline_script %q was not prepared", s.name)
	}
	f := s.runFile
	// A parsed file is resolved by execution and cannot run twice.
	s.runFile = nil
	return s.exec(ctx, rc, f)
}

func (s *InlineScript) parse(phase string) (*syntax.File, error) {
	v, _ := s.store.Get(phase)
	filename := s.name + "." + phase
	f, err := fileOptions.Parse(filename, v.Text(), 0)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return f, nil
}

func (s *InlineScript) exec(ctx context.Context, rc domain.RunContext, f *syntax.File) error {
	ws := rc.Workspace()
	globals := make(starlark.StringDict, len(ws)+2)
	for name, v := range ws {
		if sv, ok := v.(starlark.Value); ok {
			globals[name] = sv
		}
	}
	// Top-level assignments reach globals only when the chunk ends. A
	// builtin called mid-script reads them from its caller's module.
	sync := func(thread *starlark.Thread) {
		if thread != nil && thread.CallStackDepth() > 1 {
			if fn, ok := thread.DebugFrame(1).Callable().(*starlark.Function); ok {
				for name, v := range fn.Globals() {
					globals[name] = v
				}
			}
		}
		for name, v := range globals {
			if name != "exp" && name != "self" {
				ws[name] = v
			}
		}
	}
	globals["exp"] = expModule(ctx, rc, sync)
	globals["self"] = selfModule(s)

	thread := newThread(s.name, rc)
	stop := context.AfterFunc(ctx, func() { thread.Cancel(context.Cause(ctx).Error()) })
	defer stop()

	err := starlark.ExecREPLChunk(f, thread, globals)
	sync(nil)
	return err
}

func newThread(name string, rc domain.RunContext) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			rc.Logger().Info(msg, "item", name)
		},
	}
}

// expModule builds the exp module. sync publishes the script's bindings to
// the workspace before the run pauses.
func expModule(ctx context.Context, rc domain.RunContext, sync func(*starlark.Thread)) *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "exp",
		Members: starlark.StringDict{
			"get": starlark.NewBuiltin("get", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name string
				var def starlark.Value
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name, &def); err != nil {
					return nil, err
				}
				v, err := rc.Scope().Lookup(name)
				if err != nil {
					if def != nil {
						return def, nil
					}
					return nil, err
				}
				return toStarlark(v), nil
			}),
			"set": starlark.NewBuiltin("set", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name string
				var value starlark.Value
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &name, &value); err != nil {
					return nil, err
				}
				v, err := fromStarlark(value)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				rc.Globals().SetRuntime(name, v)
				return starlark.None, nil
			}),
			"has": starlark.NewBuiltin("has", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name string
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
					return nil, err
				}
				_, ok := rc.Scope().Get(name)
				return starlark.Bool(ok), nil
			}),
			"pool": starlark.NewBuiltin("pool", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name string
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
					return nil, err
				}
				path, err := rc.ResolveFile(name)
				if err != nil {
					return nil, err
				}
				return starlark.String(path), nil
			}),
			"register_cleanup": starlark.NewBuiltin("register_cleanup", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var fn starlark.Callable
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fn); err != nil {
					return nil, err
				}
				rc.RegisterCleanup(fn.Name(), func() error {
					_, err := starlark.Call(newThread(thread.Name+".cleanup", rc), fn, nil, nil)
					return err
				})
				return starlark.None, nil
			}),
			"pause": starlark.NewBuiltin("pause", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
					return nil, err
				}
				sync(thread)
				return starlark.None, rc.Pause(ctx)
			}),
			"record_response": starlark.NewBuiltin("record_response", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var correct bool
				var rt float64
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "correct", &correct, "rt?", &rt); err != nil {
					return nil, err
				}
				rc.RecordResponse(correct, time.Duration(rt*float64(time.Millisecond)))
				return starlark.None, nil
			}),
			"running": starlark.NewBuiltin("running", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				return starlark.Bool(rc.Running()), nil
			}),
			"time": starlark.NewBuiltin("time", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				return starlark.Float(float64(rc.Now().UnixNano()) / float64(time.Millisecond)), nil
			}),
		},
	}
}

func selfModule(s *InlineScript) *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "self",
		Members: starlark.StringDict{
			"name": starlark.String(s.name),
			"get": starlark.NewBuiltin("get", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name string
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
					return nil, err
				}
				v, err := s.store.Lookup(name)
				if err != nil {
					return nil, err
				}
				return toStarlark(v), nil
			}),
			"set": starlark.NewBuiltin("set", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name string
				var value starlark.Value
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &name, &value); err != nil {
					return nil, err
				}
				v, err := fromStarlark(value)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				s.store.SetRuntime(name, v)
				return starlark.None, nil
			}),
		},
	}
}
