package vars

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

// ErrUndefined is returned when a variable is looked up that no store in
// the chain defines. It is distinct from a variable holding an empty string.
var ErrUndefined = errors.New("variable undefined")

// Origin records how a variable came into existence.
type Origin int

const (
	// Declared variables come from the script or were set before a run.
	// They are serialized.
	Declared Origin = iota
	// Runtime variables were assigned while an experiment was running.
	// They are not serialized.
	Runtime
)

type entry struct {
	value  Value
	origin Origin
}

// Store is an ordered mapping of variable names to values.
// It is safe for concurrent use, so a running experiment can be inspected
// from another goroutine.
type Store struct {
	mu    sync.RWMutex
	names []string
	data  map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]*entry)}
}

// Get returns the value of name and whether it is defined.
func (s *Store) Get(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[name]
	if !ok {
		return Value{}, false
	}
	return e.value, true
}

// Lookup returns the value of name or an error wrapping ErrUndefined.
func (s *Store) Lookup(name string) (Value, error) {
	v, ok := s.Get(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	return v, nil
}

// Has reports whether name is defined.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[name]
	return ok
}

// Set assigns a declared variable. Reassigning keeps the original position.
func (s *Store) Set(name string, v Value) {
	s.set(name, v, Declared)
}

// SetRuntime assigns a variable during a run. An existing declared
// variable keeps its declared origin so it still serializes.
func (s *Store) SetRuntime(name string, v Value) {
	s.set(name, v, Runtime)
}

// SetAny converts v with FromAny and assigns it as a declared variable.
func (s *Store) SetAny(name string, v any) error {
	val, err := FromAny(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	s.Set(name, val)
	return nil
}

func (s *Store) set(name string, v Value, origin Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[name]; ok {
		e.value = v
		if origin == Declared {
			e.origin = Declared
		}
		return
	}
	s.data[name] = &entry{value: v, origin: origin}
	s.names = append(s.names, name)
}

// Delete removes name. Deleting an undefined variable is a no-op.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[name]; !ok {
		return
	}
	delete(s.data, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

// Origin returns how name was assigned.
func (s *Store) Origin(name string) (Origin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[name]
	if !ok {
		return Declared, false
	}
	return e.origin, true
}

// Len returns the number of variables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Names returns the variable names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

type pair struct {
	name   string
	value  Value
	origin Origin
}

// snapshot copies the variables in insertion order so iteration runs
// without holding the lock.
func (s *Store) snapshot() []pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pair, 0, len(s.names))
	for _, n := range s.names {
		e := s.data[n]
		out = append(out, pair{name: n, value: e.value, origin: e.origin})
	}
	return out
}

// All iterates over all variables in insertion order.
func (s *Store) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, p := range s.snapshot() {
			if !yield(p.name, p.value) {
				return
			}
		}
	}
}

// Declared iterates over declared variables in insertion order.
func (s *Store) Declared() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, p := range s.snapshot() {
			if p.origin != Declared {
				continue
			}
			if !yield(p.name, p.value) {
				return
			}
		}
	}
}

// Map returns a copy of the variables as Go values.
func (s *Store) Map() map[string]any {
	out := make(map[string]any)
	for n, v := range s.All() {
		out[n] = v.Any()
	}
	return out
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := NewStore()
	for _, p := range s.snapshot() {
		c.names = append(c.names, p.name)
		c.data[p.name] = &entry{value: p.value, origin: p.origin}
	}
	return c
}

// Replace overwrites the contents of s with those of o.
func (s *Store) Replace(o *Store) {
	c := o.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = c.names
	s.data = c.data
}
