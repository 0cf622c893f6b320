package items_test

import (
	"testing"

	"github.com/aretw0/sesame/pkg/items"
	"github.com/aretw0/sesame/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition(t *testing.T) {
	global := vars.NewStore()
	global.Set("x", vars.Int(-1))
	global.Set("response", vars.String("left"))
	global.Set("practice", vars.Parse("no"))
	global.Set("rt", vars.Float(512.5))
	global.Set("left", vars.String("right"))
	scope := vars.NewScope(vars.NewStore(), global, false)

	tests := []struct {
		cond string
		want bool
	}{
		{"always", true},
		{"ALWAYS", true},
		{"", true},
		{"never", false},
		{"x > 0", false},
		{"[x] < 0", true},
		{"[x] = -1", true},
		{"[response] = left", true},
		{"response = left", false},
		{"response == 'left'", true},
		{"[response] != 'left'", false},
		{"[practice] = no", true},
		{"[practice] = yes or [x] = -1", true},
		{"[rt] >= 500 and [rt] < 600", true},
		{"=x + 1 == 0", true},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			c, err := items.CompileCondition(tt.cond)
			require.NoError(t, err)
			got, err := c.Eval(scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCondition_Errors(t *testing.T) {
	_, err := items.CompileCondition("[x = 1")
	assert.Error(t, err)
	_, err = items.CompileCondition("=x +")
	assert.Error(t, err)
	_, err = items.CompileCondition("[x] = 'open")
	assert.Error(t, err)

	c, err := items.CompileCondition("[missing] = 1")
	require.NoError(t, err)
	_, err = c.Eval(vars.NewScope(vars.NewStore(), vars.NewStore(), false))
	assert.ErrorIs(t, err, vars.ErrUndefined)

	c, err = items.CompileCondition("missing > 0")
	require.NoError(t, err)
	_, err = c.Eval(vars.NewScope(vars.NewStore(), vars.NewStore(), false))
	assert.ErrorIs(t, err, vars.ErrUndefined)
}

func TestInterpolate(t *testing.T) {
	global := vars.NewStore()
	global.Set("name", vars.String("Ada"))
	global.Set("n", vars.Int(3))
	scope := vars.NewScope(vars.NewStore(), global, false)

	got, err := items.Interpolate("Hi [name], trial [n] of \\[n] [1, 2]", scope)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, trial 3 of [n] [1, 2]", got)

	_, err = items.Interpolate("[nope]", scope)
	assert.ErrorIs(t, err, vars.ErrUndefined)
}
