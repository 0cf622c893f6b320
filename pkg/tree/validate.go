package tree

import (
	"strings"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/items"
)

// Validate checks that start exists, every referenced child exists, every
// item has a registered type and no item (transitively) references itself.
// All problems are returned together as *domain.ValidationErrors.
func (t *Tree) Validate(start string) error {
	errs := &domain.ValidationErrors{}

	if !t.Has(start) {
		errs.Add(domain.ErrStartNotFound, start, "the start item does not exist")
	}
	for _, name := range t.Names() {
		it := t.items[name]
		if cause, ok := t.broken[name]; ok {
			errs.Add(domain.ErrUnknownType, name, "cannot construct %s: %v", it.Type(), cause)
		} else if _, ok := it.(*items.Unknown); ok {
			errs.Add(domain.ErrUnknownType, name, "type %q is not registered", it.Type())
		}
		if p, ok := it.(domain.Parent); ok {
			for _, child := range p.Children() {
				if !t.Has(child) {
					errs.Add(domain.ErrMissingChild, name, "references missing item %q", child)
				}
			}
		}
	}
	if cycle := t.findCycle(); cycle != nil {
		errs.Add(domain.ErrCycle, cycle[0], "%s", strings.Join(cycle, " -> "))
	}
	return errs.ErrOrNil()
}

// findCycle performs a deterministic DFS over sorted names and returns one
// cycle path, first node repeated at the end, or nil.
func (t *Tree) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(t.items))
	parent := make(map[string]string, len(t.items))
	var cycle []string

	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		p, _ := t.items[u].(domain.Parent)
		if p != nil {
			for _, v := range p.Children() {
				if !t.Has(v) {
					continue
				}
				switch color[v] {
				case white:
					parent[v] = u
					if dfs(v) {
						return true
					}
				case gray:
					// Back edge u -> v: walk parents from u up to v.
					path := []string{u}
					for cur := u; cur != v; {
						cur = parent[cur]
						path = append(path, cur)
					}
					for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
						path[i], path[j] = path[j], path[i]
					}
					cycle = append(path, v)
					return true
				}
			}
		}
		color[u] = black
		return false
	}

	for _, name := range t.Names() {
		if color[name] == white && dfs(name) {
			return cycle
		}
	}
	return nil
}
