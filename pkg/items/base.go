package items

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
	"github.com/mitchellh/mapstructure"
)

// Base holds what every item has: a name, a type, its own variables and
// the parsed body lines used to re-render it.
type Base struct {
	name  string
	typ   string
	store *vars.Store
	lines []script.Line
}

func newBase(def script.ItemDef) Base {
	return Base{
		name:  def.Name,
		typ:   def.Type,
		store: script.BodyVars(def.Lines),
		lines: def.Lines,
	}
}

func (b *Base) Name() string         { return b.name }
func (b *Base) SetName(name string)  { b.name = name }
func (b *Base) Type() string         { return b.typ }
func (b *Base) Vars() *vars.Store    { return b.store }
func (b *Base) Lines() []script.Line { return b.lines }

// ToText renders the body lines against the current variables.
func (b *Base) ToText() string {
	return b.render(nil, nil)
}

func (b *Base) render(skip func(script.Line) bool, tail func(w *script.DefineWriter)) string {
	w := script.NewDefineWriter(b.typ, b.name)
	w.Lines(b.lines, b.store, skip)
	w.Rest(b.store)
	if tail != nil {
		tail(w)
	}
	return w.String()
}

// VarInfo lists the item's own variables.
func (b *Base) VarInfo() []domain.VarInfo {
	var out []domain.VarInfo
	for name, v := range b.store.All() {
		out = append(out, domain.VarInfo{Name: name, Value: v.Text()})
	}
	return out
}

// text resolves a variable through the scope and interpolates references.
func (b *Base) text(rc domain.RunContext, name, fallback string) (string, error) {
	v, ok := rc.Scope().Get(name)
	if !ok {
		return fallback, nil
	}
	return Interpolate(v.Text(), rc.Scope())
}

// settings decodes the item's variables, resolved through the scope, into
// out using its mapstructure tags. Variables named in verbatim are not
// interpolated.
func (b *Base) settings(rc domain.RunContext, out any, verbatim ...string) error {
	raw := make(map[string]any)
	for name, v := range b.store.All() {
		if slices.Contains(verbatim, name) {
			raw[name] = v.Text()
			continue
		}
		s, err := b.text(rc, name, "")
		if err != nil {
			return err
		}
		raw[name] = s
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       yesNoHook,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("settings of %q: %w", b.name, err)
	}
	return nil
}

// yesNoHook maps yes/no text onto booleans.
func yesNoHook(from, to reflect.Kind, data any) (any, error) {
	if to != reflect.Bool {
		return data, nil
	}
	if s, ok := data.(string); ok {
		switch strings.ToLower(s) {
		case vars.Yes:
			return true, nil
		case vars.No, "":
			return false, nil
		}
	}
	return data, nil
}

// setRuntime assigns a global variable produced by a run.
func setRuntime(rc domain.RunContext, name string, v vars.Value) {
	rc.Globals().SetRuntime(name, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
