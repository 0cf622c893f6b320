package script

import (
	"regexp"
	"strings"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/vars"
)

// LineKind classifies a line of an item body.
type LineKind int

const (
	// LineSet is a "set <name> <value>" assignment.
	LineSet LineKind = iota
	// LineBlock is a multi-line "__name__" ... "__end__" assignment.
	LineBlock
	// LineCommand is any other line, kept verbatim.
	LineCommand
)

// Line is one logical line of an item body.
type Line struct {
	Kind LineKind
	// Name and Value are set for LineSet and LineBlock.
	Name  string
	Value string
	// Tokens is the split form of a LineCommand.
	Tokens []string
	// Raw is the source text of a LineCommand.
	Raw string
	// Num is the 1-based line number within the body.
	Num int
}

const blockEnd = "__end__"

var blockStart = regexp.MustCompile(`^__(.+)__$`)

// ParseBody splits an item body (already stripped of its one-tab indent)
// into lines. Blank lines are dropped.
func ParseBody(body string) ([]Line, error) {
	var out []Line
	src := strings.Split(body, "\n")
	for i := 0; i < len(src); i++ {
		raw := strings.TrimRight(src[i], "\r")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		if m := blockStart.FindStringSubmatch(trimmed); m != nil && trimmed != blockEnd {
			start := i
			var content []string
			closed := false
			for i++; i < len(src); i++ {
				l := strings.TrimRight(src[i], "\r")
				if strings.TrimSpace(l) == blockEnd {
					closed = true
					break
				}
				content = append(content, unescapeBlockLine(l))
			}
			if !closed {
				return nil, &domain.ParseError{Line: start + 1, Text: raw, Reason: "block is missing " + blockEnd}
			}
			out = append(out, Line{Kind: LineBlock, Name: m[1], Value: strings.Join(content, "\n"), Num: start + 1})
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			out = append(out, Line{Kind: LineCommand, Raw: trimmed, Num: i + 1})
			continue
		}
		tokens, err := Split(trimmed)
		if err != nil {
			return nil, &domain.ParseError{Line: i + 1, Text: raw, Reason: err.Error(), Err: err}
		}
		if len(tokens) > 0 && tokens[0] == "set" {
			if len(tokens) != 3 {
				return nil, &domain.ParseError{Line: i + 1, Text: raw, Reason: "set requires a name and a value"}
			}
			out = append(out, Line{Kind: LineSet, Name: tokens[1], Value: tokens[2], Num: i + 1})
			continue
		}
		out = append(out, Line{Kind: LineCommand, Tokens: tokens, Raw: trimmed, Num: i + 1})
	}
	return out, nil
}

func unescapeBlockLine(l string) string {
	if strings.TrimSpace(l) == `\`+blockEnd {
		return strings.Replace(l, `\`+blockEnd, blockEnd, 1)
	}
	return l
}

func escapeBlockLine(l string) string {
	if strings.TrimSpace(l) == blockEnd {
		return strings.Replace(l, blockEnd, `\`+blockEnd, 1)
	}
	return l
}

// BodyVars collects the assignments of lines into a new store, in order.
// Set values are type-inferred, block values stay strings.
func BodyVars(lines []Line) *vars.Store {
	s := vars.NewStore()
	for _, l := range lines {
		switch l.Kind {
		case LineSet:
			s.Set(l.Name, vars.Parse(l.Value))
		case LineBlock:
			s.Set(l.Name, vars.String(l.Value))
		}
	}
	return s
}

// Commands returns the command lines whose first token is one of verbs, or
// every command line when verbs is empty.
func Commands(lines []Line, verbs ...string) []Line {
	var out []Line
	for _, l := range lines {
		if l.Kind != LineCommand {
			continue
		}
		if len(verbs) == 0 || (len(l.Tokens) > 0 && contains(verbs, l.Tokens[0])) {
			out = append(out, l)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
