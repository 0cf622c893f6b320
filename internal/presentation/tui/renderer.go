package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/sesame/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// An empty style detects light or dark backgrounds.
func NewRenderer(style string) func(string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// VarTable renders variables as a markdown table.
func VarTable(list []domain.VarInfo) string {
	var sb strings.Builder
	sb.WriteString("| Variable | Value | Description |\n|---|---|---|\n")
	for _, v := range list {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", cell(v.Name), cell(v.Value), cell(v.Description))
	}
	return sb.String()
}

// ItemTable renders item names and types as a markdown table.
func ItemTable(types map[string]string) string {
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("| Item | Type |\n|---|---|\n")
	for _, n := range names {
		fmt.Fprintf(&sb, "| %s | %s |\n", cell(n), cell(types[n]))
	}
	return sb.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
