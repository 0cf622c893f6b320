package script

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

const namePunctuation = "-.:,+()[]{}"

// Sanitize restricts an item name to letters, digits, underscores and the
// punctuation -.:,+()[]{}. It is idempotent.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if isWord(r) || strings.ContainsRune(namePunctuation, r) {
			return r
		}
		return -1
	}, name)
}

// SanitizeStrict restricts a name to letters, digits and underscores, so it
// can never collide with the [variable] reference syntax. It is idempotent.
func SanitizeStrict(name string) string {
	return strings.Map(func(r rune) rune {
		if isWord(r) {
			return r
		}
		return -1
	}, name)
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// EncodeASCII maps text to pure ASCII. Every non-ASCII character becomes one
// or two U+XXXX escapes (UTF-16 code units). A literal "U" that would read
// as an escape is escaped itself, so DecodeASCII(EncodeASCII(s)) == s for
// every valid UTF-8 string.
func EncodeASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		switch {
		case r == 'U' && isEscapeAt(text, i):
			writeUnit(&b, 'U')
		case r < 0x80:
			b.WriteRune(r)
		default:
			for _, u := range utf16.Encode([]rune{r}) {
				writeUnit(&b, u)
			}
		}
	}
	return b.String()
}

// DecodeASCII reverses EncodeASCII. Escapes that do not form valid UTF-16
// decode to U+FFFD.
func DecodeASCII(text string) string {
	var (
		b     strings.Builder
		units []uint16
	)
	flush := func() {
		if len(units) > 0 {
			b.WriteString(string(utf16.Decode(units)))
			units = units[:0]
		}
	}
	for i := 0; i < len(text); {
		if isEscapeAt(text, i) {
			u, _ := strconv.ParseUint(text[i+2:i+6], 16, 16)
			units = append(units, uint16(u))
			i += 6
			continue
		}
		flush()
		b.WriteByte(text[i])
		i++
	}
	flush()
	return b.String()
}

func writeUnit(b *strings.Builder, u uint16) {
	fmt.Fprintf(b, "U+%04X", u)
}

// isEscapeAt reports whether text[i:] starts with U+ and four hex digits.
func isEscapeAt(text string, i int) bool {
	if i+6 > len(text) || text[i] != 'U' || text[i+1] != '+' {
		return false
	}
	for _, c := range []byte(text[i+2 : i+6]) {
		if !isHex(c) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
