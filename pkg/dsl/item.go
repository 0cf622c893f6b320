package dsl

import (
	"strconv"

	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
)

// ItemBuilder provides a fluent API for configuring an item.
type ItemBuilder struct {
	typ, name string
	lines     []string
	builder   *Builder
}

// Set adds an item variable.
func (i *ItemBuilder) Set(name string, value any) *ItemBuilder {
	i.lines = append(i.lines, script.FormatSet(name, toValue(value)))
	return i
}

// Block adds a multi-line variable.
func (i *ItemBuilder) Block(name, text string) *ItemBuilder {
	i.lines = append(i.lines, script.FormatVar(name, vars.String(text)))
	return i
}

// Command adds a raw body line, such as a draw or log command.
func (i *ItemBuilder) Command(line string) *ItemBuilder {
	i.lines = append(i.lines, line)
	return i
}

// Log adds a logger column.
func (i *ItemBuilder) Log(variable string) *ItemBuilder {
	return i.Command("log " + script.Quote(variable))
}

// Done returns the experiment builder.
func (i *ItemBuilder) Done() *Builder {
	return i.builder
}

func (i *ItemBuilder) text() string {
	w := script.NewDefineWriter(i.typ, i.name)
	for _, l := range i.lines {
		w.Line(l)
	}
	return w.String()
}

// SequenceBuilder configures a sequence.
type SequenceBuilder struct {
	item *ItemBuilder
}

// Run appends a child that always runs.
func (s *SequenceBuilder) Run(child string) *SequenceBuilder {
	return s.RunIf(child, script.Always)
}

// RunIf appends a child with a run-condition.
func (s *SequenceBuilder) RunIf(child, cond string) *SequenceBuilder {
	s.item.Command("run " + script.Quote(child) + " " + script.Quote(cond))
	return s
}

// Set adds a sequence variable.
func (s *SequenceBuilder) Set(name string, value any) *SequenceBuilder {
	s.item.Set(name, value)
	return s
}

// Done returns the experiment builder.
func (s *SequenceBuilder) Done() *Builder {
	return s.item.builder
}

// LoopBuilder configures a loop.
type LoopBuilder struct {
	item *ItemBuilder
}

// Item sets the child run on every iteration.
func (l *LoopBuilder) Item(child string) *LoopBuilder {
	l.item.Command("run " + script.Quote(child))
	return l
}

// Repeat sets the repeat factor.
func (l *LoopBuilder) Repeat(n float64) *LoopBuilder {
	l.item.Set("repeat", n)
	return l
}

// Order sets sequential or random order.
func (l *LoopBuilder) Order(order string) *LoopBuilder {
	l.item.Set("order", order)
	return l
}

// BreakIf sets the condition that ends the loop early.
func (l *LoopBuilder) BreakIf(cond string) *LoopBuilder {
	l.item.Set("break_if", cond)
	return l
}

// Cycle binds variable to value in row i of the loop table.
func (l *LoopBuilder) Cycle(i int, variable string, value any) *LoopBuilder {
	l.item.Command("setcycle " + strconv.Itoa(i) + " " + script.Quote(variable) + " " + script.Quote(toValue(value).Text()))
	return l
}

// FromFile reads the loop table from a CSV file in the pool.
func (l *LoopBuilder) FromFile(name string) *LoopBuilder {
	l.item.Set("source", "file")
	l.item.Set("source_file", name)
	return l
}

// Set adds a loop variable.
func (l *LoopBuilder) Set(name string, value any) *LoopBuilder {
	l.item.Set(name, value)
	return l
}

// Done returns the experiment builder.
func (l *LoopBuilder) Done() *Builder {
	return l.item.builder
}
