package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sesame/pkg/dsl"
	"github.com/aretw0/sesame/pkg/items"
)

func TestBuilder_SimpleExperiment(t *testing.T) {
	b := dsl.New()
	b.Set("title", "Stroop task").Set("subject_nr", 3)

	b.Sequence("experiment").
		Run("welcome").
		RunIf("trials", "[practice] = no")

	b.Loop("trials").
		Repeat(2).
		Order("random").
		Cycle(0, "color", "dark red").
		Cycle(1, "color", "blue").
		Item("trial")

	b.Item("sketchpad", "welcome").
		Set("duration", 0).
		Command(`draw textline text="Welcome"`)

	b.Item("logger", "trial").Log("color")

	def, tr, err := b.Build(items.NewRegistry())
	require.NoError(t, err)

	title, ok := def.Globals.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Stroop task", title.Text())
	nr, _ := def.Globals.Get("subject_nr")
	assert.Equal(t, int64(3), nr.Any())

	assert.Equal(t, []string{"experiment", "trial", "trials", "welcome"}, tr.Names())
	assert.NoError(t, tr.Validate("experiment"))

	seq, _ := tr.Get("experiment")
	assert.Equal(t, []string{"welcome", "trials"}, seq.(*items.Sequence).Children())

	loop, _ := tr.Get("trials")
	l := loop.(*items.Loop)
	assert.Equal(t, "trial", l.Item())
	require.Len(t, l.Table(), 2)
	assert.Equal(t, "dark red", l.Table()[0]["color"].Text())
}

func TestBuilder_InlineScriptBlocks(t *testing.T) {
	b := dsl.New()
	b.InlineScript("setup", "x = 1\ny = 2", `exp.set("z", x + y)`)

	_, tr, err := b.Build(items.NewRegistry())
	require.NoError(t, err)

	it, ok := tr.Get("setup")
	require.True(t, ok)
	v, ok := it.Vars().Get("_prepare")
	require.True(t, ok)
	assert.Equal(t, "x = 1\ny = 2", v.Text())
	v, _ = it.Vars().Get("_run")
	assert.Equal(t, `exp.set("z", x + y)`, v.Text())
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := dsl.New()
	first := b.Item("logger", "log")
	assert.Same(t, first, b.Item("logger", "log"))
}

func TestBuilder_UnknownTypeStillBuilds(t *testing.T) {
	b := dsl.New()
	b.Sequence("experiment").Run("p")
	b.Item("fancy_plugin", "p").Command("custom command")

	_, tr, err := b.Build(items.NewRegistry())
	require.NoError(t, err)
	assert.Error(t, tr.Validate("experiment"))
	p, _ := tr.Get("p")
	assert.Equal(t, "define fancy_plugin p\n\tcustom command\n", p.ToText())
}
