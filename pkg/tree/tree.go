// Package tree holds the experiment's items in an arena keyed by name.
//
// Structural items reference their children by name only. Construction is
// total over any parsed definition; structural problems are reported by an
// explicit Validate pass so partially invalid trees can still be edited.
package tree

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/items"
	"github.com/aretw0/sesame/pkg/registry"
	"github.com/aretw0/sesame/pkg/script"
)

// Tree maps item names to live items.
type Tree struct {
	reg    *registry.Registry
	items  map[string]domain.Item
	broken map[string]error
}

// New creates an empty tree constructing items with reg.
func New(reg *registry.Registry) *Tree {
	return &Tree{
		reg:    reg,
		items:  make(map[string]domain.Item),
		broken: make(map[string]error),
	}
}

// Build constructs every item of def. Items of unregistered types, or
// whose constructor fails, become placeholders that keep their body and
// fail validation.
func Build(def *script.Definition, reg *registry.Registry) *Tree {
	t := New(reg)
	for _, d := range def.Items {
		t.items[d.Name] = t.construct(d)
	}
	return t
}

func (t *Tree) construct(d script.ItemDef) domain.Item {
	if !t.reg.IsKnown(d.Type) {
		return items.NewUnknown(d)
	}
	it, err := t.reg.Construct(d)
	if err != nil {
		t.broken[d.Name] = err
		return items.NewUnknown(d)
	}
	return it
}

// Registry returns the registry used to construct items.
func (t *Tree) Registry() *registry.Registry { return t.reg }

// Get returns the named item.
func (t *Tree) Get(name string) (domain.Item, bool) {
	it, ok := t.items[name]
	return it, ok
}

// Has reports whether an item named name exists.
func (t *Tree) Has(name string) bool {
	_, ok := t.items[name]
	return ok
}

// Len returns the number of items.
func (t *Tree) Len() int { return len(t.items) }

// Names returns the item names, sorted.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.items))
	for n := range t.items {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Items returns the items sorted by name.
func (t *Tree) Items() []domain.Item {
	out := make([]domain.Item, 0, len(t.items))
	for _, n := range t.Names() {
		out = append(out, t.items[n])
	}
	return out
}

// Add inserts an item. The name must be free.
func (t *Tree) Add(it domain.Item) error {
	if t.Has(it.Name()) {
		return fmt.Errorf("item %q already exists", it.Name())
	}
	t.items[it.Name()] = it
	return nil
}

// Create constructs an empty item of type typ and adds it.
func (t *Tree) Create(typ, name string) (domain.Item, error) {
	if t.Has(name) {
		return nil, fmt.Errorf("item %q already exists", name)
	}
	it, err := t.reg.Construct(script.ItemDef{Type: typ, Name: name})
	if err != nil {
		return nil, err
	}
	t.items[name] = it
	return it, nil
}

// Delete removes an item. References to it are left dangling and reported
// by Validate.
func (t *Tree) Delete(name string) {
	delete(t.items, name)
	delete(t.broken, name)
}

// Rename renames an item and rewrites every reference to it.
func (t *Tree) Rename(old, new string) error {
	it, ok := t.items[old]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownItem, old)
	}
	if old == new {
		return nil
	}
	if t.Has(new) {
		return fmt.Errorf("item %q already exists", new)
	}
	r, ok := it.(domain.Renamer)
	if !ok {
		return fmt.Errorf("item %q cannot be renamed", old)
	}
	r.SetName(new)
	delete(t.items, old)
	t.items[new] = it
	if err, ok := t.broken[old]; ok {
		delete(t.broken, old)
		t.broken[new] = err
	}
	for _, other := range t.items {
		if p, ok := other.(domain.Parent); ok {
			p.RenameChild(old, new)
		}
	}
	return nil
}

// UniqueName returns base if no item uses it, or base with the lowest free
// numeric suffix otherwise.
func (t *Tree) UniqueName(base string) string {
	base = script.Sanitize(base)
	if base == "" {
		base = "item"
	}
	if !t.Has(base) {
		return base
	}
	for i := 1; ; i++ {
		name := base + "_" + strconv.Itoa(i)
		if !t.Has(name) {
			return name
		}
	}
}

// Reachable returns the names reachable from start, sorted. Missing
// children are skipped.
func (t *Tree) Reachable(start string) []string {
	seen := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		it, ok := t.items[name]
		if !ok || seen[name] {
			return
		}
		seen[name] = true
		if p, ok := it.(domain.Parent); ok {
			for _, c := range p.Children() {
				visit(c)
			}
		}
	}
	visit(start)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Unused returns the names not reachable from start, sorted.
func (t *Tree) Unused(start string) []string {
	reachable := t.Reachable(start)
	var out []string
	for _, n := range t.Names() {
		if !slices.Contains(reachable, n) {
			out = append(out, n)
		}
	}
	return out
}
