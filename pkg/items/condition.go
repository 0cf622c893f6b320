package items

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
	"go.starlark.net/starlark"
)

type tokenKind int

const (
	tokVar tokenKind = iota
	tokWord
	tokNumber
	tokString
	tokOp
)

var conditionOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true, "<": true, ">": true, "=": true,
	"(": true, ")": true, ",": true, "+": true, "-": true, "*": true, "/": true, "%": true,
}

type condToken struct {
	kind tokenKind
	text string
}

// Condition is a compiled run-condition.
//
// "always" and "never" are constants. A condition starting with "=" is a
// raw Starlark expression. Otherwise a lone "=" means equality and [name]
// references a variable. In a condition using [name] references every bare
// word is a string, so "[response] = left" compares against "left". In a
// condition without them bare words are variable references ("x > 0").
type Condition struct {
	src      string
	constant *bool
	raw      string
	tokens   []condToken
	// bracketed is set when the condition has [name] references.
	bracketed bool
}

var starlarkWords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "if": true, "else": true,
	"True": true, "False": true, "None": true,
}

// CompileCondition parses a condition.
func CompileCondition(src string) (*Condition, error) {
	c := &Condition{src: src}
	trimmed := strings.TrimSpace(src)
	switch strings.ToLower(trimmed) {
	case script.Always, "":
		t := true
		c.constant = &t
		return c, nil
	case script.Never:
		f := false
		c.constant = &f
		return c, nil
	}
	if strings.HasPrefix(trimmed, "=") {
		c.raw = strings.TrimSpace(trimmed[1:])
		if _, err := fileOptions.ParseExpr("condition", c.raw, 0); err != nil {
			return nil, fmt.Errorf("condition %q: %w", src, err)
		}
		return c, nil
	}
	tokens, err := tokenizeCondition(trimmed)
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", src, err)
	}
	c.tokens = tokens
	c.bracketed = slices.ContainsFunc(tokens, func(t condToken) bool { return t.kind == tokVar })
	return c, nil
}

// String returns the source text.
func (c *Condition) String() string { return c.src }

// Eval evaluates the condition against the variables visible in scope.
func (c *Condition) Eval(scope *vars.Scope) (bool, error) {
	if c.constant != nil {
		return *c.constant, nil
	}
	env := scopeDict(scope)
	expr := c.raw
	if expr == "" {
		var err error
		expr, err = c.translate(env)
		if err != nil {
			return false, err
		}
	}
	thread := &starlark.Thread{Name: "condition"}
	v, err := starlark.EvalOptions(fileOptions, thread, "condition", expr, env)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", c.src, err)
	}
	return bool(v.Truth()), nil
}

func (c *Condition) translate(env starlark.StringDict) (string, error) {
	parts := make([]string, 0, len(c.tokens))
	for _, t := range c.tokens {
		switch t.kind {
		case tokVar:
			if _, ok := env[t.text]; !ok {
				return "", fmt.Errorf("condition %q: %w: %s", c.src, vars.ErrUndefined, t.text)
			}
			parts = append(parts, t.text)
		case tokWord:
			switch {
			case starlarkWords[t.text]:
				parts = append(parts, t.text)
			case c.bracketed:
				parts = append(parts, starlark.String(t.text).String())
			default:
				if _, ok := env[t.text]; !ok {
					return "", fmt.Errorf("condition %q: %w: %s", c.src, vars.ErrUndefined, t.text)
				}
				parts = append(parts, t.text)
			}
		case tokOp:
			if t.text == "=" {
				parts = append(parts, "==")
			} else {
				parts = append(parts, t.text)
			}
		default:
			parts = append(parts, t.text)
		}
	}
	return strings.Join(parts, " "), nil
}

func tokenizeCondition(s string) ([]condToken, error) {
	var out []condToken
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '[':
			end := indexRune(runes, i+1, ']')
			if end < 0 {
				return nil, fmt.Errorf("unclosed variable reference at %d", i)
			}
			name := string(runes[i+1 : end])
			if !isIdent(name) {
				return nil, fmt.Errorf("invalid variable name %q", name)
			}
			out = append(out, condToken{kind: tokVar, text: name})
			i = end + 1

		case r == '"' || r == '\'':
			j := i + 1
			for ; j < len(runes) && runes[j] != r; j++ {
				if runes[j] == '\\' {
					j++
				}
			}
			if j >= len(runes) {
				return nil, script.ErrUnterminatedQuote
			}
			out = append(out, condToken{kind: tokString, text: string(runes[i : j+1])})
			i = j + 1

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			out = append(out, condToken{kind: tokNumber, text: string(runes[i:j])})
			i = j

		case r == '_' || unicode.IsLetter(r):
			j := i
			for j < len(runes) && (runes[j] == '_' || unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			out = append(out, condToken{kind: tokWord, text: string(runes[i:j])})
			i = j

		default:
			op := string(r)
			if i+1 < len(runes) && strings.Contains("=!<>", op) && runes[i+1] == '=' {
				op += "="
			}
			if !conditionOps[op] {
				return nil, fmt.Errorf("unexpected %q", op)
			}
			out = append(out, condToken{kind: tokOp, text: op})
			i += len([]rune(op))
		}
	}
	return out, nil
}

func indexRune(runes []rune, from int, r rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func isIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
