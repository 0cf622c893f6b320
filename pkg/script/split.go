package script

import (
	"errors"
	"strings"
	"unicode"
)

// ErrUnterminatedQuote is returned by Split for a quote that is never closed.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Split breaks a line into shell-like tokens.
//
// Whitespace separates tokens. Single quotes group text literally. Double
// quotes group text and honour the escapes \" \\ \n and \t. Outside quotes a
// backslash escapes the next character. Quoted parts adjacent to unquoted
// text join into one token.
func Split(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
		quote   rune
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		char := runes[i]

		switch {
		case quote == '\'':
			if char == '\'' {
				quote = 0
				continue
			}
			current.WriteRune(char)

		case quote == '"':
			if char == '"' {
				quote = 0
				continue
			}
			if char == '\\' && i+1 < len(runes) {
				switch runes[i+1] {
				case '"', '\\':
					current.WriteRune(runes[i+1])
					i++
					continue
				case 'n':
					current.WriteRune('\n')
					i++
					continue
				case 't':
					current.WriteRune('\t')
					i++
					continue
				}
			}
			current.WriteRune(char)

		case char == '\'' || char == '"':
			quote = char
			inToken = true

		case char == '\\':
			inToken = true
			if i+1 < len(runes) {
				current.WriteRune(runes[i+1])
				i++
			}

		case unicode.IsSpace(char):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}

		default:
			inToken = true
			current.WriteRune(char)
		}
	}

	if quote != 0 {
		return nil, ErrUnterminatedQuote
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// Quote returns value in a form Split reads back as a single token.
func Quote(value string) string {
	if value == "" {
		return `""`
	}
	if !strings.ContainsFunc(value, needsQuote) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('"')
	for _, r := range value {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuote(r rune) bool {
	return unicode.IsSpace(r) || r == '"' || r == '\'' || r == '\\' || r == '#'
}

// Join quotes each token and joins them with single spaces.
func Join(tokens ...string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = Quote(t)
	}
	return strings.Join(quoted, " ")
}
