package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
)

// Constructor builds a live item from its parsed definition.
type Constructor func(def script.ItemDef) (domain.Item, error)

// Registry maps item type names to constructors.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Constructor
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]Constructor),
	}
}

// Register adds an item type to the registry.
// If the type is already registered, it is overwritten.
func (r *Registry) Register(typ string, fn Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typ] = fn
}

// IsKnown reports whether typ has a constructor.
func (r *Registry) IsKnown(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[typ]
	return ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Construct looks up the constructor for def.Type and builds the item.
// Returns an error wrapping domain.ErrUnknownType if the type is not registered.
func (r *Registry) Construct(def script.ItemDef) (domain.Item, error) {
	r.mu.RLock()
	fn, ok := r.types[def.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownType, def.Type)
	}

	item, err := fn(def)
	if err != nil {
		return nil, fmt.Errorf("construct %s %q: %w", def.Type, def.Name, err)
	}
	return item, nil
}
