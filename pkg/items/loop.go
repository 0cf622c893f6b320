package items

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
)

// Loop sources.
const (
	SourceTable = "table"
	SourceFile  = "file"
)

// Loop runs one child repeatedly, binding one table row per iteration.
type Loop struct {
	Base
	item  string
	table []map[string]vars.Value

	// set by Prepare
	rows    []map[string]vars.Value
	order   []int
	breakIf *Condition
}

type loopSettings struct {
	Repeat     float64 `mapstructure:"repeat"`
	Cycles     int     `mapstructure:"cycles"`
	Order      string  `mapstructure:"order"`
	BreakIf    string  `mapstructure:"break_if"`
	Source     string  `mapstructure:"source"`
	SourceFile string  `mapstructure:"source_file"`
}

// NewLoop builds a loop from its definition.
func NewLoop(def script.ItemDef) (domain.Item, error) {
	l := &Loop{Base: newBase(def)}
	if def.Loop != nil {
		l.item = def.Loop.Item
		l.table = cloneTable(def.Loop.Table)
		if !l.store.Has("cycles") && len(l.table) > 0 {
			l.store.Set("cycles", vars.Int(int64(len(l.table))))
		}
	}
	// The child is rendered as a run line.
	l.store.Delete("item")
	return l, nil
}

// Item returns the name of the child.
func (l *Loop) Item() string { return l.item }

// SetItem changes the child.
func (l *Loop) SetItem(name string) { l.item = name }

// Table returns a copy of the setcycle rows.
func (l *Loop) Table() []map[string]vars.Value { return cloneTable(l.table) }

// SetCycle binds name to v in row i, growing the table as needed.
func (l *Loop) SetCycle(i int, name string, v vars.Value) {
	for len(l.table) <= i {
		l.table = append(l.table, nil)
	}
	if l.table[i] == nil {
		l.table[i] = make(map[string]vars.Value)
	}
	l.table[i][name] = v
}

// Children implements domain.Parent.
func (l *Loop) Children() []string {
	if l.item == "" {
		return nil
	}
	return []string{l.item}
}

// RenameChild implements domain.Parent.
func (l *Loop) RenameChild(old, new string) {
	if l.item == old {
		l.item = new
	}
}

// Prepare resolves the iteration plan and loads a file source from the pool.
func (l *Loop) Prepare(ctx context.Context, rc domain.RunContext) error {
	cfg := loopSettings{Repeat: 1, Cycles: 1, Order: script.OrderSequential, BreakIf: script.Never, Source: SourceTable}
	if err := l.settings(rc, &cfg, "break_if"); err != nil {
		return err
	}
	if cfg.Repeat < 0 || cfg.Cycles < 0 {
		return fmt.Errorf("loop %q: repeat and cycles must not be negative", l.name)
	}

	cond, err := CompileCondition(cfg.BreakIf)
	if err != nil {
		return err
	}
	l.breakIf = cond

	table := l.table
	if cfg.Source == SourceFile {
		if cfg.SourceFile == "" {
			return fmt.Errorf("loop %q: source_file is empty", l.name)
		}
		path, err := rc.ResolveFile(cfg.SourceFile)
		if err != nil {
			return err
		}
		table, err = readTable(path)
		if err != nil {
			return fmt.Errorf("loop %q: %w", l.name, err)
		}
		if !l.store.Has("cycles") {
			cfg.Cycles = len(table)
		}
	}

	l.rows = make([]map[string]vars.Value, cfg.Cycles)
	for i := range l.rows {
		if i < len(table) {
			l.rows[i] = table[i]
		}
	}

	n := int(math.Floor(float64(cfg.Cycles) * cfg.Repeat))
	l.order = make([]int, n)
	for i := range l.order {
		l.order[i] = i % max(cfg.Cycles, 1)
	}
	switch cfg.Order {
	case script.OrderSequential:
	case script.OrderRandom:
		rc.Rand().Shuffle(len(l.order), func(i, j int) { l.order[i], l.order[j] = l.order[j], l.order[i] })
	default:
		return fmt.Errorf("loop %q: unknown order %q", l.name, cfg.Order)
	}
	return nil
}

func (l *Loop) Run(ctx context.Context, rc domain.RunContext) error {
	if l.breakIf == nil {
		return fmt.Errorf("loop %q was not prepared", l.name)
	}
	if l.item == "" && len(l.order) > 0 {
		return fmt.Errorf("loop %q has no item to run", l.name)
	}
	for _, row := range l.order {
		if err := checkRunning(ctx, rc); err != nil {
			return err
		}
		for _, name := range sortedKeys(l.rows[row]) {
			setRuntime(rc, name, l.rows[row][name])
		}
		setRuntime(rc, "live_row", vars.Int(int64(row)))
		setRuntime(rc, "live_row_"+l.name, vars.Int(int64(row)))

		stop, err := l.breakIf.Eval(rc.Scope())
		if err != nil {
			return err
		}
		if stop {
			rc.Logger().Debug("break_if is true", "loop", l.name, "row", row)
			break
		}
		if err := rc.Exec(ctx, l.item); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) ToText() string {
	return l.render(isCommand("run", "setcycle"), func(w *script.DefineWriter) {
		for i, row := range l.table {
			for _, name := range sortedKeys(row) {
				w.Line("setcycle " + strconv.Itoa(i) + " " + script.Quote(name) + " " + script.Quote(row[name].Text()))
			}
		}
		if l.item != "" {
			w.Line("run " + script.Quote(l.item))
		}
	})
}

func (l *Loop) VarInfo() []domain.VarInfo {
	out := l.Base.VarInfo()
	seen := make(map[string]bool)
	for _, row := range l.table {
		for _, name := range sortedKeys(row) {
			if !seen[name] {
				seen[name] = true
				out = append(out, domain.VarInfo{Name: name, Value: row[name].Text(), Description: "loop column"})
			}
		}
	}
	return append(out, domain.VarInfo{Name: "live_row_" + l.name, Description: "current row"})
}

// readTable reads a CSV file with a header row.
func readTable(path string) ([]map[string]vars.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var table []map[string]vars.Value
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(map[string]vars.Value, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = vars.Parse(rec[i])
			}
		}
		table = append(table, row)
	}
	return table, nil
}

func cloneTable(t []map[string]vars.Value) []map[string]vars.Value {
	out := make([]map[string]vars.Value, len(t))
	for i, row := range t {
		if row != nil {
			out[i] = make(map[string]vars.Value, len(row))
			for k, v := range row {
				out[i][k] = v
			}
		}
	}
	return out
}
