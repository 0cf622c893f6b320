package vars

import "fmt"

// Scope is the variable context of one executing item.
type Scope struct {
	own         *Store
	parent      *Scope
	global      *Store
	transparent bool
}

// NewScope creates the root scope for an item executed directly under the
// experiment.
func NewScope(own, global *Store, transparent bool) *Scope {
	return &Scope{own: own, global: global, transparent: transparent}
}

// Child creates the scope of an item executed from the item owning s.
func (s *Scope) Child(own *Store) *Scope {
	return &Scope{own: own, parent: s, global: s.global, transparent: s.transparent}
}

// Own returns the item's own store.
func (s *Scope) Own() *Store { return s.own }

// Global returns the global store.
func (s *Scope) Global() *Store { return s.global }

// Transparent reports whether ancestor stores take part in lookups.
func (s *Scope) Transparent() bool { return s.transparent }

// Get resolves name through the chain.
func (s *Scope) Get(name string) (Value, bool) {
	if s.own != nil {
		if v, ok := s.own.Get(name); ok {
			return v, true
		}
	}
	if s.transparent {
		for p := s.parent; p != nil; p = p.parent {
			if p.own == nil {
				continue
			}
			if v, ok := p.own.Get(name); ok {
				return v, true
			}
		}
	}
	if s.global != nil {
		return s.global.Get(name)
	}
	return Value{}, false
}

// Lookup resolves name or returns an error wrapping ErrUndefined.
func (s *Scope) Lookup(name string) (Value, error) {
	v, ok := s.Get(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	return v, nil
}

// Visible returns every name resolvable from s with the value Get would
// return for it.
func (s *Scope) Visible() map[string]Value {
	out := make(map[string]Value)
	if s.global != nil {
		for n, v := range s.global.All() {
			out[n] = v
		}
	}
	if s.transparent {
		var chain []*Store
		for p := s.parent; p != nil; p = p.parent {
			if p.own != nil {
				chain = append(chain, p.own)
			}
		}
		// Farthest ancestor first so nearer ones win.
		for i := len(chain) - 1; i >= 0; i-- {
			for n, v := range chain[i].All() {
				out[n] = v
			}
		}
	}
	if s.own != nil {
		for n, v := range s.own.All() {
			out[n] = v
		}
	}
	return out
}
