package items

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
)

// Sequence runs its children in declared order, skipping those whose
// run-condition is false.
type Sequence struct {
	Base
	children []script.ChildRef
	conds    []*Condition
}

// NewSequence builds a sequence from its definition.
func NewSequence(def script.ItemDef) (domain.Item, error) {
	s := &Sequence{Base: newBase(def)}
	if def.Sequence != nil {
		s.children = slices.Clone(def.Sequence.Children)
	}
	return s, nil
}

// Entries returns the child references with their conditions.
func (s *Sequence) Entries() []script.ChildRef { return slices.Clone(s.children) }

// Append adds a child reference. An empty condition means always.
func (s *Sequence) Append(name, cond string) {
	if cond == "" {
		cond = script.Always
	}
	s.children = append(s.children, script.ChildRef{Name: name, Cond: cond})
}

// Children implements domain.Parent.
func (s *Sequence) Children() []string {
	out := make([]string, len(s.children))
	for i, c := range s.children {
		out[i] = c.Name
	}
	return out
}

// RenameChild implements domain.Parent.
func (s *Sequence) RenameChild(old, new string) {
	for i := range s.children {
		if s.children[i].Name == old {
			s.children[i].Name = new
		}
	}
}

// Prepare compiles the run-conditions.
func (s *Sequence) Prepare(ctx context.Context, rc domain.RunContext) error {
	s.conds = make([]*Condition, len(s.children))
	for i, c := range s.children {
		cond, err := CompileCondition(c.Cond)
		if err != nil {
			return err
		}
		s.conds[i] = cond
	}
	return nil
}

func (s *Sequence) Run(ctx context.Context, rc domain.RunContext) error {
	if len(s.conds) != len(s.children) {
		return fmt.Errorf("sequence %q was not prepared", s.name)
	}
	for i, c := range s.children {
		if err := checkRunning(ctx, rc); err != nil {
			return err
		}
		ok, err := s.conds[i].Eval(rc.Scope())
		if err != nil {
			return err
		}
		if !ok {
			rc.Logger().Debug("skipping child", "sequence", s.name, "child", c.Name, "cond", c.Cond)
			continue
		}
		if err := rc.Exec(ctx, c.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequence) ToText() string {
	return s.render(isCommand("run"), func(w *script.DefineWriter) {
		for _, c := range s.children {
			w.Line("run " + script.Quote(c.Name) + " " + script.Quote(c.Cond))
		}
	})
}

func isCommand(verbs ...string) func(script.Line) bool {
	return func(l script.Line) bool {
		return len(l.Tokens) > 0 && slices.Contains(verbs, l.Tokens[0])
	}
}

// checkRunning reports an abort between two discrete steps.
func checkRunning(ctx context.Context, rc domain.RunContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rc.Running() {
		return domain.ErrAborted
	}
	return nil
}
