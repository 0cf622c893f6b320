// Package terminal provides text-mode collaborators: a display that prints
// canvases, a bell sound, and responders reading lines or answering
// automatically.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Display writes every canvas to an io.Writer as a small markdown document.
type Display struct {
	mu       sync.Mutex
	w        io.Writer
	markdown bool
	style    string
	render   func(string) (string, error)
	settings ports.DisplaySettings
}

var _ ports.Display = (*Display)(nil)

// DisplayOption configures a Display.
type DisplayOption func(*Display)

// WithMarkdown renders canvases with glamour instead of printing the raw
// markdown. An empty style picks one from the terminal background.
func WithMarkdown(style string) DisplayOption {
	return func(d *Display) {
		d.markdown = true
		d.style = style
	}
}

// NewDisplay creates a display writing to w.
func NewDisplay(w io.Writer, opts ...DisplayOption) *Display {
	d := &Display{w: w}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Display) Init(ctx context.Context, settings ports.DisplaySettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = settings
	d.render = nil
	if !d.markdown {
		return nil
	}
	styleOpt := glamour.WithAutoStyle()
	if d.style != "" {
		styleOpt = glamour.WithStandardStyle(d.style)
	}
	width := settings.Width / 10
	if width <= 0 || width > 120 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	d.render = r.Render
	return nil
}

// Show prints the canvas.
func (d *Display) Show(ctx context.Context, c domain.Canvas) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := Markdown(c)
	if d.render != nil {
		rendered, err := d.render(out)
		if err != nil {
			return err
		}
		out = rendered
	}
	_, err := io.WriteString(d.w, out)
	return err
}

func (d *Display) Close() error { return nil }

// Markdown renders a canvas as markdown: a heading with the item name and
// one line per element.
func Markdown(c domain.Canvas) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", c.Item)
	for _, el := range c.Elements {
		b.WriteString(element(el))
		b.WriteString("\n\n")
	}
	return b.String()
}

func element(el domain.Element) string {
	switch el.Kind {
	case "textline", "text":
		return el.Props["text"]
	case "fixdot":
		return "**+**"
	case "image":
		src := el.Props["path"]
		if src == "" {
			src = el.Props["file"]
		}
		return fmt.Sprintf("![%s](%s)", el.Props["file"], src)
	}
	keys := make([]string, 0, len(el.Props))
	for k := range el.Props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := []string{"`" + el.Kind + "`"}
	for _, k := range keys {
		parts = append(parts, k+"="+el.Props[k])
	}
	return strings.Join(parts, " ")
}
