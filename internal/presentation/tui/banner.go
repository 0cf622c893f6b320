package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sesame ASCII banner followed by the version line.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"  ___  ___ ___  __ _ _ __ ___   ___ ", "#34d399"},
		{" / __|/ _ / __|/ _` | '_ ` _ \\ / _ \\", "#2dd4bf"},
		{" \\__ \\  __\\__ \\ (_| | | | | | |  __/", "#22d3ee"},
		{" |___/\\___|___/\\__,_|_| |_| |_|\\___|", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}

// Status colors a run status for the terminal.
func Status(status string) string {
	p := termenv.ColorProfile()
	color := "#fbbf24"
	switch status {
	case "completed":
		color = "#34d399"
	case "failed":
		color = "#f87171"
	}
	return termenv.String(status).Foreground(p.Color(color)).Bold().String()
}
