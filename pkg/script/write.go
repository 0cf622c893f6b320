package script

import (
	"strings"

	"github.com/aretw0/sesame/pkg/vars"
)

// FormatVar renders one variable assignment. Values spanning several lines
// use the block form.
func FormatVar(name string, v vars.Value) string {
	text := v.Text()
	if strings.Contains(text, "\n") {
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			lines[i] = escapeBlockLine(l)
		}
		return "__" + name + "__\n" + strings.Join(lines, "\n") + "\n" + blockEnd
	}
	return FormatSet(name, v)
}

// FormatSet renders a single-line assignment; newlines are escaped.
func FormatSet(name string, v vars.Value) string {
	return "set " + Quote(name) + " " + Quote(v.Text())
}

// DefineWriter renders a define block.
type DefineWriter struct {
	b       strings.Builder
	written map[string]bool
}

// NewDefineWriter starts a block for an item of type typ named name.
func NewDefineWriter(typ, name string) *DefineWriter {
	w := &DefineWriter{written: make(map[string]bool)}
	w.b.WriteString("define " + Quote(typ) + " " + Quote(name) + "\n")
	return w
}

// Line writes one body line, indented by a tab.
func (w *DefineWriter) Line(text string) {
	for _, l := range strings.Split(text, "\n") {
		w.b.WriteString("\t" + l + "\n")
	}
}

// Var writes an assignment of name unless it was already written.
func (w *DefineWriter) Var(name string, v vars.Value) {
	if w.written[name] {
		return
	}
	w.written[name] = true
	w.Line(FormatVar(name, v))
}

// Lines re-renders parsed body lines against the current store: assignments
// take their current value (and disappear when deleted), commands are kept
// verbatim. skip filters out commands the caller renders itself.
func (w *DefineWriter) Lines(lines []Line, store *vars.Store, skip func(Line) bool) {
	for _, l := range lines {
		switch l.Kind {
		case LineSet, LineBlock:
			if v, ok := store.Get(l.Name); ok {
				w.Var(l.Name, v)
			}
		default:
			if skip == nil || !skip(l) {
				w.Line(l.Raw)
			}
		}
	}
}

// Rest writes every declared variable of store not yet written.
func (w *DefineWriter) Rest(store *vars.Store) {
	for name, v := range store.Declared() {
		w.Var(name, v)
	}
}

// String returns the rendered block.
func (w *DefineWriter) String() string { return w.b.String() }
