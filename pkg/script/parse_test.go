package script_test

import (
	"errors"
	"testing"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# Generated by sesame 0.1.0 (test) on today (linux)

set title "Stroop task"
set start experiment
set subject_nr 3

define sequence experiment
	set flush_keyboard yes
	run welcome always
	run trials "[practice] = no"
	run goodbye

define loop trials

	set repeat 2
	set order random
	setcycle 0 color red
	setcycle 1 color "dark blue"
	run trial

define inline_script code
	___run__
	print("it's here")
	__end__
	set _prepare ""
`

func TestParse(t *testing.T) {
	def, err := script.Parse(sample)
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "start", "subject_nr"}, def.Globals.Names())
	title, _ := def.Globals.Get("title")
	assert.Equal(t, "Stroop task", title.Text())
	nr, _ := def.Globals.Get("subject_nr")
	assert.Equal(t, vars.KindInt, nr.Kind())

	require.Len(t, def.Items, 3)

	seq, ok := def.Item("experiment")
	require.True(t, ok)
	assert.Equal(t, 7, seq.Line)
	require.NotNil(t, seq.Sequence)
	assert.Equal(t, []script.ChildRef{
		{Name: "welcome", Cond: "always"},
		{Name: "trials", Cond: "[practice] = no"},
		{Name: "goodbye", Cond: "always"},
	}, seq.Sequence.Children)

	loop, ok := def.Item("trials")
	require.True(t, ok)
	require.NotNil(t, loop.Loop)
	assert.Equal(t, "trial", loop.Loop.Item)
	assert.Equal(t, 2.0, loop.Loop.Repeat)
	assert.Equal(t, 2, loop.Loop.Cycles)
	assert.Equal(t, script.OrderRandom, loop.Loop.Order)
	require.Len(t, loop.Loop.Table, 2)
	assert.Equal(t, "dark blue", loop.Loop.Table[1]["color"].Text())

	code, ok := def.Item("code")
	require.True(t, ok)
	store := script.BodyVars(code.Lines)
	run, _ := store.Get("_run")
	assert.Equal(t, `print("it's here")`, run.Text())
	prep, _ := store.Get("_prepare")
	assert.Equal(t, "", prep.Text())
}

func TestParse_BlankLinesDoNotEndBlock(t *testing.T) {
	def, err := script.Parse("define sketchpad a\n\tset duration 10\n\n\n\tset x 1\nset y 2\n")
	require.NoError(t, err)
	store := script.BodyVars(def.Items[0].Lines)
	assert.True(t, store.Has("x"))
	assert.True(t, def.Globals.Has("y"))
}

func TestParse_SanitizesNames(t *testing.T) {
	def, err := script.Parse(`define sketchpad "my pad!"`)
	require.NoError(t, err)
	assert.Equal(t, "mypad", def.Items[0].Name)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"unterminated quote", "set a b\nset title \"oops\n", 2},
		{"define arity", "define sequence\n", 1},
		{"define too many", "define sequence a b\n", 1},
		{"set arity", "set a\n", 1},
		{"duplicate", "define sketchpad a\ndefine sketchpad a\n", 2},
		{"body quote", "define sketchpad a\n\tset x 1\n\tdraw textline text=\"x\n", 3},
		{"body set arity", "define sketchpad a\n\tset x\n", 2},
		{"unclosed block", "define inline_script a\n\t___run__\n\tprint(1)\n", 2},
		{"bad setcycle", "define loop l\n\tsetcycle x a b\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := script.Parse(tt.text)
			require.Error(t, err)
			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe), "got %T", err)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestParse_IgnoresCommentsWithQuotes(t *testing.T) {
	def, err := script.Parse("# don't split me\nset a 1\n")
	require.NoError(t, err)
	assert.True(t, def.Globals.Has("a"))
}

func TestFormatVar_Block(t *testing.T) {
	text := script.FormatVar("_run", vars.String("a\n__end__\nb"))
	assert.Equal(t, "___run__\na\n\\__end__\nb\n__end__", text)

	lines, err := script.ParseBody(text)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "a\n__end__\nb", lines[0].Value)
}

func TestDefineWriter_KeepsOrder(t *testing.T) {
	lines, err := script.ParseBody("set b 1\ndraw fixdot\nset a 2")
	require.NoError(t, err)
	store := script.BodyVars(lines)
	store.Set("b", vars.Int(5))
	store.Set("c", vars.String("new value"))

	w := script.NewDefineWriter("sketchpad", "pad")
	w.Lines(lines, store, nil)
	w.Rest(store)
	assert.Equal(t, "define sketchpad pad\n\tset b 5\n\tdraw fixdot\n\tset a 2\n\tset c \"new value\"\n", w.String())
}

func TestHeader_IgnoredOnParse(t *testing.T) {
	h := script.Header{Version: "1.0", Codename: "x", Time: "now", Platform: "linux", URL: "https://example.org"}
	text := script.Serialize(vars.NewStore(), nil, &h)
	def, err := script.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 0, def.Globals.Len())
	assert.Empty(t, def.Items)
}

func TestSerialize_QuotesNames(t *testing.T) {
	globals := vars.NewStore()
	globals.Set("my var", vars.Int(1))
	globals.Set(`say "hi"`, vars.String("yes please"))

	def, err := script.Parse(script.Serialize(globals, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"my var", `say "hi"`}, def.Globals.Names())
	v, _ := def.Globals.Get("my var")
	assert.Equal(t, int64(1), v.Any())
}

func TestDefineWriter_QuotesNames(t *testing.T) {
	lines, err := script.ParseBody("set \"a b\" 1\ndraw fixdot")
	require.NoError(t, err)
	store := script.BodyVars(lines)

	w := script.NewDefineWriter("odd type", "pad")
	w.Lines(lines, store, nil)
	text := w.String()
	assert.Equal(t, "define \"odd type\" pad\n\tset \"a b\" 1\n\tdraw fixdot\n", text)

	def, err := script.Parse(text)
	require.NoError(t, err)
	require.Len(t, def.Items, 1)
	assert.Equal(t, "odd type", def.Items[0].Type)
	again, err := script.ParseBody(def.Items[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "a b", again[0].Name)
}
