package items

import (
	"fmt"
	"strings"

	"github.com/aretw0/sesame/pkg/vars"
)

// Interpolate replaces [name] references in text with variable values.
// "\[" produces a literal bracket. Brackets around anything other than an
// identifier are kept as they are.
func Interpolate(text string, scope *vars.Scope) (string, error) {
	if !strings.Contains(text, "[") {
		return text, nil
	}
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) && runes[i+1] == '[' {
			b.WriteRune('[')
			i++
			continue
		}
		if r != '[' {
			b.WriteRune(r)
			continue
		}
		end := indexRune(runes, i+1, ']')
		if end < 0 || !isIdent(string(runes[i+1:end])) {
			b.WriteRune(r)
			continue
		}
		name := string(runes[i+1 : end])
		v, err := scope.Lookup(name)
		if err != nil {
			return "", fmt.Errorf("text %q: %w", text, err)
		}
		b.WriteString(v.Text())
		i = end
	}
	return b.String(), nil
}
