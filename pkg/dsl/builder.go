package dsl

import (
	"fmt"
	"strings"

	"github.com/aretw0/sesame/pkg/registry"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/tree"
	"github.com/aretw0/sesame/pkg/vars"
)

// Builder manages the experiment construction.
type Builder struct {
	globals *vars.Store
	order   []string
	items   map[string]*ItemBuilder
}

// New creates a new experiment builder.
func New() *Builder {
	return &Builder{
		globals: vars.NewStore(),
		items:   make(map[string]*ItemBuilder),
	}
}

// Set declares a global variable.
func (b *Builder) Set(name string, value any) *Builder {
	b.globals.Set(name, toValue(value))
	return b
}

// Item creates a new item definition.
// If the item already exists, it returns the existing builder.
func (b *Builder) Item(typ, name string) *ItemBuilder {
	if ib, ok := b.items[name]; ok {
		return ib
	}
	ib := &ItemBuilder{typ: typ, name: name, builder: b}
	b.items[name] = ib
	b.order = append(b.order, name)
	return ib
}

// Sequence creates a sequence item.
func (b *Builder) Sequence(name string) *SequenceBuilder {
	return &SequenceBuilder{item: b.Item("sequence", name)}
}

// Loop creates a loop item.
func (b *Builder) Loop(name string) *LoopBuilder {
	return &LoopBuilder{item: b.Item("loop", name)}
}

// InlineScript creates an inline_script item with prepare and run code.
func (b *Builder) InlineScript(name, prepare, run string) *ItemBuilder {
	ib := b.Item("inline_script", name)
	if prepare != "" {
		ib.Block("_prepare", prepare)
	}
	if run != "" {
		ib.Block("_run", run)
	}
	return ib
}

// Script renders the definition text.
func (b *Builder) Script() string {
	var sb strings.Builder
	for name, v := range b.globals.All() {
		sb.WriteString(script.FormatVar(name, v) + "\n")
	}
	for _, name := range b.order {
		sb.WriteString("\n")
		sb.WriteString(b.items[name].text())
	}
	return sb.String()
}

// Build parses the rendered text and builds the item tree.
func (b *Builder) Build(reg *registry.Registry) (*script.Definition, *tree.Tree, error) {
	def, err := script.Parse(b.Script())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build experiment: %w", err)
	}
	return def, tree.Build(def, reg), nil
}

func toValue(value any) vars.Value {
	if v, ok := value.(vars.Value); ok {
		return v
	}
	v, err := vars.FromAny(value)
	if err != nil {
		return vars.String(fmt.Sprint(value))
	}
	return v
}
