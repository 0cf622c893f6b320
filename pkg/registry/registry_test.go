package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/registry"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubItem struct{ name string }

func (s *stubItem) Name() string                                     { return s.name }
func (s *stubItem) Type() string                                     { return "stub" }
func (s *stubItem) Vars() *vars.Store                                { return vars.NewStore() }
func (s *stubItem) Prepare(context.Context, domain.RunContext) error { return nil }
func (s *stubItem) Run(context.Context, domain.RunContext) error     { return nil }
func (s *stubItem) ToText() string                                   { return "define stub " + s.name + "\n" }
func (s *stubItem) VarInfo() []domain.VarInfo                        { return nil }

func TestRegistry(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("stub", func(def script.ItemDef) (domain.Item, error) {
		return &stubItem{name: def.Name}, nil
	})
	reg.Register("broken", func(def script.ItemDef) (domain.Item, error) {
		return nil, errors.New("boom")
	})

	assert.True(t, reg.IsKnown("stub"))
	assert.False(t, reg.IsKnown("nope"))
	assert.Equal(t, []string{"broken", "stub"}, reg.Types())

	item, err := reg.Construct(script.ItemDef{Type: "stub", Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", item.Name())

	_, err = reg.Construct(script.ItemDef{Type: "nope", Name: "b"})
	assert.ErrorIs(t, err, domain.ErrUnknownType)

	_, err = reg.Construct(script.ItemDef{Type: "broken", Name: "c"})
	assert.ErrorContains(t, err, "boom")
}
