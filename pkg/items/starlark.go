package items

import (
	"fmt"

	"github.com/aretw0/sesame/pkg/vars"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// toStarlark converts a variable. Booleans keep their yes/no text so they
// compare equal to the bare words of a condition.
func toStarlark(v vars.Value) starlark.Value {
	switch v.Kind() {
	case vars.KindInt:
		i, _ := v.Int64()
		return starlark.MakeInt64(i)
	case vars.KindFloat:
		f, _ := v.Float64()
		return starlark.Float(f)
	default:
		return starlark.String(v.Text())
	}
}

// fromStarlark converts a script value into a variable. Strings are
// type-inferred like script text.
func fromStarlark(v starlark.Value) (vars.Value, error) {
	switch x := v.(type) {
	case starlark.String:
		return vars.Parse(string(x)), nil
	case starlark.Bool:
		return vars.Bool(bool(x)), nil
	case starlark.Int:
		i, ok := x.Int64()
		if !ok {
			return vars.Value{}, fmt.Errorf("integer %s out of range", x)
		}
		return vars.Int(i), nil
	case starlark.Float:
		return vars.Float(float64(x)), nil
	case starlark.NoneType:
		return vars.String("None"), nil
	}
	return vars.Value{}, fmt.Errorf("cannot store %s in a variable", v.Type())
}

func scopeDict(scope *vars.Scope) starlark.StringDict {
	visible := scope.Visible()
	env := make(starlark.StringDict, len(visible))
	for name, v := range visible {
		env[name] = toStarlark(v)
	}
	return env
}

// WorkspaceVars converts the script workspace into variables. Bindings with
// no variable form, such as functions, are skipped.
func WorkspaceVars(ws map[string]any) map[string]vars.Value {
	out := make(map[string]vars.Value, len(ws))
	for name, x := range ws {
		var (
			v   vars.Value
			err error
		)
		if sv, ok := x.(starlark.Value); ok {
			v, err = fromStarlark(sv)
		} else {
			v, err = vars.FromAny(x)
		}
		if err == nil {
			out[name] = v
		}
	}
	return out
}
