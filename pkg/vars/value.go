package vars

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the scalar type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Textual forms of boolean values.
const (
	Yes = "yes"
	No  = "no"
)

// Value is an immutable scalar variable value.
// The zero Value is the empty string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	// s is the string, or for a parsed number its source text when that
	// differs from the canonical form.
	s string
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a yes/no Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Parse infers the type of a textual value: integers and floats become
// numbers, "yes" and "no" become booleans, everything else stays a string.
// A number keeps its source text, so "007" is the integer 7 and still
// reads "007".
func Parse(text string) Value {
	switch text {
	case Yes:
		return Bool(true)
	case No:
		return Bool(false)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return withSource(Int(i), text)
	}
	if looksNumeric(text) {
		if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return withSource(Float(f), text)
		}
	}
	return String(text)
}

func withSource(v Value, text string) Value {
	if v.Text() != text {
		v.s = text
	}
	return v
}

// looksNumeric rejects spellings strconv accepts but which are words in an
// experiment script ("inf", "nan", "0x1p-2", "1_000").
func looksNumeric(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !strings.ContainsRune("0123456789.-+eE", r) {
			return false
		}
	}
	return true
}

// FromAny converts a Go value into a Value.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case nil:
		return String(""), nil
	}
	return Value{}, fmt.Errorf("unsupported variable type %T", v)
}

// Kind returns the scalar type of v.
func (v Value) Kind() Kind { return v.kind }

// Text returns the serialization form of v.
func (v Value) Text() string {
	if v.IsNumber() && v.s != "" {
		return v.s
	}
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		// Keep a decimal marker so the text parses back as a float.
		text := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(text, ".e") {
			text += ".0"
		}
		return text
	case KindBool:
		if v.b {
			return Yes
		}
		return No
	default:
		return v.s
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Text() }

// Any returns the underlying Go value (string, int64, float64 or bool).
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return v.s
	}
}

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// Float64 returns v as a float. Strings are parsed; booleans map to 1 and 0.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	}
}

// Int64 returns v as an integer, truncating floats.
func (v Value) Int64() (int64, bool) {
	if v.kind == KindInt {
		return v.i, true
	}
	f, ok := v.Float64()
	return int64(f), ok
}

// Truthy reports the boolean meaning of v: yes, non-zero numbers and
// non-empty strings other than "no" are true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	default:
		return v.s != "" && v.s != No
	}
}

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return v.s == o.s
	}
}
