package script

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/vars"
)

// Header is the informational comment written at the top of a script.
// Parse ignores it.
type Header struct {
	Version  string
	Codename string
	// Time is the formatted creation time.
	Time     string
	Platform string
	URL      string
}

func (h Header) String() string {
	s := fmt.Sprintf("# Generated by sesame %s (%s) on %s (%s)\n", h.Version, h.Codename, h.Time, h.Platform)
	if h.URL != "" {
		s += "# <" + h.URL + ">\n"
	}
	return s + "\n"
}

// Serialize renders the declared globals in insertion order followed by
// the items sorted by name. A nil header is omitted.
func Serialize(globals *vars.Store, items []domain.Item, h *Header) string {
	var b strings.Builder
	if h != nil {
		b.WriteString(h.String())
	}
	for name, v := range globals.Declared() {
		b.WriteString(FormatSet(name, v))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b domain.Item) int { return strings.Compare(a.Name(), b.Name()) })
	for _, it := range sorted {
		b.WriteString(it.ToText())
		b.WriteByte('\n')
	}
	return b.String()
}
