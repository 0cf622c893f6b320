package items

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
)

// Special durations.
const (
	DurationKeypress   = "keypress"
	DurationMouseclick = "mouseclick"
	DurationSound      = "sound"
)

// Sketchpad shows a canvas built from "draw" commands:
//
//	draw textline text="Hello [name]" x=0 y=0
//	draw image file=face.png
//	draw fixdot
//
// Text properties are interpolated and file properties are resolved in the
// pool when the item prepares, so showing it costs no lookup.
type Sketchpad struct {
	Base
	canvas domain.Canvas
}

type sketchpadSettings struct {
	Duration string `mapstructure:"duration"`
}

// NewSketchpad builds a sketchpad from its definition.
func NewSketchpad(def script.ItemDef) (domain.Item, error) {
	s := &Sketchpad{Base: newBase(def)}
	if !s.store.Has("duration") {
		s.store.Set("duration", vars.String(DurationKeypress))
	}
	return s, nil
}

func (s *Sketchpad) Prepare(ctx context.Context, rc domain.RunContext) error {
	c, err := buildCanvas(rc, s.name, s.lines)
	if err != nil {
		return err
	}
	s.canvas = c
	return nil
}

func (s *Sketchpad) Run(ctx context.Context, rc domain.RunContext) error {
	if err := rc.Show(ctx, s.canvas); err != nil {
		return err
	}
	setRuntime(rc, "time_"+s.name, timestamp(rc))
	var cfg sketchpadSettings
	if err := s.settings(rc, &cfg); err != nil {
		return err
	}
	return wait(ctx, rc, s.name, cfg.Duration)
}

func (s *Sketchpad) VarInfo() []domain.VarInfo {
	return append(s.Base.VarInfo(), domain.VarInfo{Name: "time_" + s.name, Description: "onset time"})
}

// Feedback is a sketchpad rendered when it runs, so it shows the feedback
// variables of the responses collected so far.
type Feedback struct {
	Base
}

type feedbackSettings struct {
	Duration       string `mapstructure:"duration"`
	ResetVariables bool   `mapstructure:"reset_variables"`
}

// NewFeedback builds a feedback item from its definition.
func NewFeedback(def script.ItemDef) (domain.Item, error) {
	f := &Feedback{Base: newBase(def)}
	if !f.store.Has("reset_variables") {
		f.store.Set("reset_variables", vars.Bool(true))
	}
	if !f.store.Has("duration") {
		f.store.Set("duration", vars.String(DurationKeypress))
	}
	return f, nil
}

func (f *Feedback) Prepare(ctx context.Context, rc domain.RunContext) error {
	return nil
}

func (f *Feedback) Run(ctx context.Context, rc domain.RunContext) error {
	var cfg feedbackSettings
	if err := f.settings(rc, &cfg); err != nil {
		return err
	}
	c, err := buildCanvas(rc, f.name, f.lines)
	if err != nil {
		return err
	}
	if err := rc.Show(ctx, c); err != nil {
		return err
	}
	setRuntime(rc, "time_"+f.name, timestamp(rc))
	if cfg.ResetVariables {
		rc.ResetFeedback()
	}
	return wait(ctx, rc, f.name, cfg.Duration)
}

func (f *Feedback) VarInfo() []domain.VarInfo {
	return append(f.Base.VarInfo(), domain.VarInfo{Name: "time_" + f.name, Description: "onset time"})
}

func buildCanvas(rc domain.RunContext, item string, lines []script.Line) (domain.Canvas, error) {
	c := domain.Canvas{Item: item}
	for _, l := range script.Commands(lines, "draw") {
		if len(l.Tokens) < 2 {
			return c, fmt.Errorf("line %d: draw requires an element", l.Num)
		}
		el := domain.Element{Kind: l.Tokens[1], Props: make(map[string]string)}
		for i, tok := range l.Tokens[2:] {
			key, value, ok := strings.Cut(tok, "=")
			if !ok {
				key, value = "arg"+strconv.Itoa(i), tok
			}
			text, err := Interpolate(value, rc.Scope())
			if err != nil {
				return c, err
			}
			el.Props[key] = text
		}
		if file, ok := el.Props["file"]; ok {
			path, err := rc.ResolveFile(file)
			if err != nil {
				return c, err
			}
			el.Props["path"] = path
		}
		c.Elements = append(c.Elements, el)
	}
	return c, nil
}

func timestamp(rc domain.RunContext) vars.Value {
	return vars.Int(rc.Now().UnixMilli())
}

// wait blocks for a duration setting: a number of milliseconds, keypress or
// mouseclick. Zero or an empty setting returns immediately.
func wait(ctx context.Context, rc domain.RunContext, item, duration string) error {
	switch duration {
	case "", "0", DurationSound:
		return nil
	case DurationKeypress, DurationMouseclick:
		_, err := rc.Collect(ctx, domain.ResponseRequest{Item: item})
		return err
	}
	ms, err := strconv.ParseFloat(duration, 64)
	if err != nil || ms < 0 {
		return fmt.Errorf("invalid duration %q", duration)
	}
	return sleep(ctx, time.Duration(ms*float64(time.Millisecond)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
