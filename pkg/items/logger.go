package items

import (
	"context"
	"slices"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
)

// NA is logged for variables that are not defined.
const NA = "NA"

// Logger appends one row of variable values to the log.
// Variables are listed with "log <name>" lines; with "set auto_log yes"
// every visible variable is logged.
type Logger struct {
	Base
}

type loggerSettings struct {
	AutoLog bool `mapstructure:"auto_log"`
}

// NewLogger builds a logger from its definition.
func NewLogger(def script.ItemDef) (domain.Item, error) {
	return &Logger{Base: newBase(def)}, nil
}

// Columns returns the explicitly logged variable names in order.
func (l *Logger) Columns() []string {
	var out []string
	for _, line := range script.Commands(l.lines, "log") {
		for _, name := range line.Tokens[1:] {
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	return out
}

func (l *Logger) Prepare(ctx context.Context, rc domain.RunContext) error {
	return nil
}

func (l *Logger) Run(ctx context.Context, rc domain.RunContext) error {
	var cfg loggerSettings
	if err := l.settings(rc, &cfg); err != nil {
		return err
	}
	names := l.Columns()
	if cfg.AutoLog {
		names = sortedKeys(rc.Scope().Visible())
	}
	row := make(domain.LogRow, 0, len(names))
	for _, name := range names {
		value := NA
		if v, ok := rc.Scope().Get(name); ok {
			value = v.Text()
		}
		row = append(row, domain.LogField{Name: name, Value: value})
	}
	return rc.Log(ctx, row)
}
