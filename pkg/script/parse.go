package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/vars"
)

// Loop orders.
const (
	OrderSequential = "sequential"
	OrderRandom     = "random"
)

// Condition literals.
const (
	Always = "always"
	Never  = "never"
)

// Definition is the parsed form of a script.
type Definition struct {
	// Globals holds the top-level assignments in script order.
	Globals *vars.Store
	// Items holds the define blocks in script order.
	Items []ItemDef
}

// Item returns the definition named name.
func (d *Definition) Item(name string) (ItemDef, bool) {
	for _, it := range d.Items {
		if it.Name == name {
			return it, true
		}
	}
	return ItemDef{}, false
}

// ItemDef is one define block.
type ItemDef struct {
	Type string
	Name string
	// Body is the raw body with the one-tab indent removed.
	Body string
	// Line is the line number of the define statement.
	Line  int
	Lines []Line

	Sequence *SequenceSpec
	Loop     *LoopSpec
}

// ChildRef is one "run <name> [condition]" entry of a sequence.
type ChildRef struct {
	Name string
	Cond string
}

// SequenceSpec is the structure of a sequence body.
type SequenceSpec struct {
	Children []ChildRef
}

// LoopSpec is the structure of a loop body.
type LoopSpec struct {
	Item       string
	Repeat     float64
	Cycles     int
	Order      string
	BreakIf    string
	Source     string
	SourceFile string
	// Table holds the setcycle rows. Rows missing from the script are nil.
	Table []map[string]vars.Value
}

// Parse reads a script.
func Parse(text string) (*Definition, error) {
	def := &Definition{Globals: vars.NewStore()}
	seen := make(map[string]int)

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		tokens, err := Split(line)
		if err != nil {
			return nil, &domain.ParseError{Line: i + 1, Text: line, Reason: err.Error(), Err: err}
		}
		if len(tokens) == 0 {
			continue
		}

		switch tokens[0] {
		case "set":
			if len(tokens) != 3 {
				return nil, &domain.ParseError{Line: i + 1, Text: line, Reason: "set requires a name and a value"}
			}
			def.Globals.Set(tokens[1], vars.Parse(tokens[2]))

		case "define":
			if len(tokens) != 3 {
				return nil, &domain.ParseError{Line: i + 1, Text: line, Reason: "define requires a type and a name"}
			}
			name := Sanitize(tokens[2])
			if name == "" {
				return nil, &domain.ParseError{Line: i + 1, Text: line, Reason: "item name is empty after sanitizing"}
			}
			if prev, dup := seen[name]; dup {
				return nil, &domain.ParseError{Line: i + 1, Text: line, Reason: fmt.Sprintf("item %q already defined on line %d", name, prev)}
			}
			seen[name] = i + 1

			// Indented lines belong to the block; blank lines do not end it.
			var body []string
			for i+1 < len(lines) {
				next := lines[i+1]
				if strings.TrimRight(next, "\r") == "" {
					i++
					continue
				}
				if !strings.HasPrefix(next, "\t") {
					break
				}
				body = append(body, next[1:])
				i++
			}

			item, err := newItemDef(tokens[1], name, strings.Join(body, "\n"), seen[name])
			if err != nil {
				return nil, err
			}
			def.Items = append(def.Items, item)
		}
	}
	return def, nil
}

func newItemDef(typ, name, body string, line int) (ItemDef, error) {
	item := ItemDef{Type: typ, Name: name, Body: body, Line: line}
	lines, err := ParseBody(body)
	if err != nil {
		return item, offset(err, line)
	}
	item.Lines = lines

	switch typ {
	case domain.TypeSequence:
		item.Sequence = parseSequence(lines)
	case domain.TypeLoop:
		item.Loop, err = parseLoop(lines)
		if err != nil {
			return item, offset(err, line)
		}
	}
	return item, nil
}

// offset converts a body-relative line number into a script line number.
func offset(err error, defineLine int) error {
	if pe, ok := err.(*domain.ParseError); ok && pe.Line > 0 {
		cp := *pe
		cp.Line += defineLine
		return &cp
	}
	return err
}

func parseSequence(lines []Line) *SequenceSpec {
	spec := &SequenceSpec{}
	for _, l := range Commands(lines, "run") {
		if len(l.Tokens) < 2 {
			continue
		}
		cond := Always
		if len(l.Tokens) > 2 {
			cond = strings.Join(l.Tokens[2:], " ")
		}
		spec.Children = append(spec.Children, ChildRef{Name: l.Tokens[1], Cond: cond})
	}
	return spec
}

func parseLoop(lines []Line) (*LoopSpec, error) {
	spec := &LoopSpec{Repeat: 1, Cycles: 1, Order: OrderSequential, BreakIf: Never, Source: "table"}
	cyclesSet := false
	for _, l := range lines {
		switch l.Kind {
		case LineSet:
			switch l.Name {
			case "item":
				spec.Item = l.Value
			// Unparseable counts may hold [variable] references; the loop
			// resolves them when it prepares.
			case "repeat":
				if f, err := strconv.ParseFloat(l.Value, 64); err == nil && f >= 0 {
					spec.Repeat = f
				}
			case "cycles":
				if n, err := strconv.Atoi(l.Value); err == nil && n >= 0 {
					spec.Cycles = n
					cyclesSet = true
				}
			case "order":
				spec.Order = l.Value
			case "break_if":
				spec.BreakIf = l.Value
			case "source":
				spec.Source = l.Value
			case "source_file":
				spec.SourceFile = l.Value
			}
		case LineCommand:
			if len(l.Tokens) == 0 {
				continue
			}
			switch l.Tokens[0] {
			case "run":
				if len(l.Tokens) >= 2 {
					spec.Item = l.Tokens[1]
				}
			case "setcycle":
				if len(l.Tokens) != 4 {
					return nil, &domain.ParseError{Line: l.Num, Text: l.Raw, Reason: "setcycle requires a cycle, a name and a value"}
				}
				n, err := strconv.Atoi(l.Tokens[1])
				if err != nil || n < 0 {
					return nil, &domain.ParseError{Line: l.Num, Text: l.Raw, Reason: "setcycle requires a non-negative cycle number"}
				}
				for len(spec.Table) <= n {
					spec.Table = append(spec.Table, nil)
				}
				if spec.Table[n] == nil {
					spec.Table[n] = make(map[string]vars.Value)
				}
				spec.Table[n][l.Tokens[2]] = vars.Parse(l.Tokens[3])
			}
		}
	}
	if !cyclesSet && len(spec.Table) > 0 {
		spec.Cycles = len(spec.Table)
	}
	return spec, nil
}
