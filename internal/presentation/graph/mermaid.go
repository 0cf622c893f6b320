package graph

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/items"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/tree"
)

// GraphOverlay contains run state to highlight on the graph.
type GraphOverlay struct {
	VisitedItems []string
	CurrentItem  string
}

// GenerateMermaid produces a Mermaid flowchart of the item tree.
// It applies semantic styling:
// - Start item: ((Circle))
// - Sequence: [[Subroutine]]
// - Loop: {{Hexagon}}
// - Response items: [/Parallelogram/]
// - Unregistered types: dashed rectangle
// References to missing items are drawn as dangling edges.
func GenerateMermaid(t *tree.Tree, start string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var missing []string
	seenMissing := map[string]bool{}
	var unknown []string

	for _, name := range t.Names() {
		it, _ := t.Get(name)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == start:
			opener, closer = "((", "))"
		case it.Type() == domain.TypeSequence:
			opener, closer = "[[", "]]"
		case it.Type() == domain.TypeLoop:
			opener, closer = "{{", "}}"
		case it.Type() == items.TypeKeyboardResponse:
			opener, closer = "[/", "/]"
		}
		if _, ok := it.(*items.Unknown); ok {
			unknown = append(unknown, safeID)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", safeID, opener, escapeLabel(name), it.Type(), closer)

		for _, e := range edges(it) {
			if !t.Has(e.to) && !seenMissing[e.to] {
				seenMissing[e.to] = true
				missing = append(missing, e.to)
			}
			arrow := "-->"
			switch {
			case e.label != "" && e.dotted:
				arrow = fmt.Sprintf("-. \"%s\" .->", escapeLabel(e.label))
			case e.label != "":
				arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(e.label))
			case e.dotted:
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(e.to))
		}
	}

	for _, name := range missing {
		fmt.Fprintf(&sb, "    %s>\"%s (missing)\"]\n", sanitizeMermaidID(name), escapeLabel(name))
	}
	if len(missing) > 0 || len(unknown) > 0 {
		sb.WriteString("    classDef broken stroke:#c62828,stroke-dasharray: 5 5;\n")
		for _, name := range missing {
			fmt.Fprintf(&sb, "    class %s broken;\n", sanitizeMermaidID(name))
		}
		for _, id := range unknown {
			fmt.Fprintf(&sb, "    class %s broken;\n", id)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedItems {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentItem != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentItem))
		}
	}

	return sb.String()
}

type edge struct {
	to     string
	label  string
	dotted bool
}

func edges(it domain.Item) []edge {
	switch x := it.(type) {
	case *items.Sequence:
		var out []edge
		for _, c := range x.Entries() {
			e := edge{to: c.Name}
			if c.Cond != "" && c.Cond != script.Always {
				e.label = c.Cond
			}
			out = append(out, e)
		}
		return out
	case *items.Loop:
		if x.Item() == "" {
			return nil
		}
		label := "loop"
		if v, ok := x.Vars().Get("cycles"); ok {
			label = v.Text() + " cycles"
		}
		if v, ok := x.Vars().Get("repeat"); ok && v.Text() != "1" {
			label += " x" + v.Text()
		}
		return []edge{{to: x.Item(), label: label, dotted: true}}
	case domain.Parent:
		var out []edge
		for _, c := range x.Children() {
			out = append(out, edge{to: c})
		}
		return out
	}
	return nil
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, id)
}
