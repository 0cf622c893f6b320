package vars_test

import (
	"testing"

	"github.com/aretw0/sesame/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		kind vars.Kind
		text string
	}{
		{"42", vars.KindInt, "42"},
		{"-7", vars.KindInt, "-7"},
		{"1.5", vars.KindFloat, "1.5"},
		{"1e3", vars.KindFloat, "1e3"},
		{"007", vars.KindInt, "007"},
		{"+5", vars.KindInt, "+5"},
		{"1.50", vars.KindFloat, "1.50"},
		{"yes", vars.KindBool, "yes"},
		{"no", vars.KindBool, "no"},
		{"inf", vars.KindString, "inf"},
		{"nan", vars.KindString, "nan"},
		{"hello world", vars.KindString, "hello world"},
		{"", vars.KindString, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v := vars.Parse(tt.in)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.text, v.Text())
		})
	}
}

func TestParse_KeepsNumberText(t *testing.T) {
	v := vars.Parse("007")
	assert.Equal(t, int64(7), v.Any())
	assert.True(t, v.Equal(vars.Int(7)))
	assert.Equal(t, "007", vars.Parse(v.Text()).Text())
	assert.Equal(t, "7", vars.Int(7).Text())
}

func TestFloatTextReparsesAsFloat(t *testing.T) {
	for _, f := range []float64{100000, 0.1, -2, 1e21} {
		v := vars.Float(f)
		back := vars.Parse(v.Text())
		assert.True(t, v.Equal(back), "%v -> %q -> %v", f, v.Text(), back)
	}
}

func TestStore_OrderAndOrigin(t *testing.T) {
	s := vars.NewStore()
	s.Set("b", vars.Int(1))
	s.Set("a", vars.String("x"))
	s.SetRuntime("c", vars.Bool(true))
	s.Set("b", vars.Int(2))

	assert.Equal(t, []string{"b", "a", "c"}, s.Names())
	v, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Any())

	var declared []string
	for n := range s.Declared() {
		declared = append(declared, n)
	}
	assert.Equal(t, []string{"b", "a"}, declared)

	// A runtime write never demotes a declared variable.
	s.SetRuntime("a", vars.String("y"))
	o, _ := s.Origin("a")
	assert.Equal(t, vars.Declared, o)

	s.Delete("b")
	assert.False(t, s.Has("b"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_UndefinedIsNotEmpty(t *testing.T) {
	s := vars.NewStore()
	s.Set("empty", vars.String(""))

	v, err := s.Lookup("empty")
	require.NoError(t, err)
	assert.Equal(t, "", v.Text())

	_, err = s.Lookup("missing")
	assert.ErrorIs(t, err, vars.ErrUndefined)
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := vars.NewStore()
	s.Set("x", vars.Int(1))
	c := s.Clone()
	c.Set("x", vars.Int(2))
	c.Set("y", vars.Int(3))

	v, _ := s.Get("x")
	assert.Equal(t, int64(1), v.Any())
	assert.False(t, s.Has("y"))

	s.Replace(c)
	assert.Equal(t, []string{"x", "y"}, s.Names())
}

func TestScope_Resolution(t *testing.T) {
	global := vars.NewStore()
	global.Set("x", vars.String("global"))
	global.Set("g", vars.Int(1))

	outer := vars.NewStore()
	outer.Set("x", vars.String("outer"))
	outer.Set("o", vars.Int(2))

	inner := vars.NewStore()
	inner.Set("i", vars.Int(3))

	t.Run("opaque", func(t *testing.T) {
		root := vars.NewScope(outer, global, false)
		child := root.Child(inner)

		v, err := child.Lookup("x")
		require.NoError(t, err)
		assert.Equal(t, "global", v.Text())
		_, err = child.Lookup("o")
		assert.ErrorIs(t, err, vars.ErrUndefined)
	})

	t.Run("transparent", func(t *testing.T) {
		root := vars.NewScope(outer, global, true)
		child := root.Child(inner)

		v, err := child.Lookup("x")
		require.NoError(t, err)
		assert.Equal(t, "outer", v.Text())

		visible := child.Visible()
		assert.Equal(t, "outer", visible["x"].Text())
		assert.Contains(t, visible, "g")
		assert.Contains(t, visible, "o")
		assert.Contains(t, visible, "i")
	})

	t.Run("own wins", func(t *testing.T) {
		own := vars.NewStore()
		own.Set("x", vars.String("own"))
		child := vars.NewScope(outer, global, true).Child(own)
		v, _ := child.Get("x")
		assert.Equal(t, "own", v.Text())
	})
}
