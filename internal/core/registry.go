package core

// The registry is an explicit object rather than package state, so tests
// and multi-tenant setups can build isolated registries with their own
// persistence wiring.

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the kind definitions available to one pipeline instance.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]KindDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]KindDefinition)}
}

// Register adds a kind definition.
// Panics if a kind with the same key is already registered.
func (r *Registry) Register(def KindDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[def.Key]; exists {
		panic(fmt.Sprintf("kind already registered: %s", def.Key))
	}
	r.kinds[def.Key] = def
}

// Get returns a kind definition by key.
// Returns false if not found.
func (r *Registry) Get(key string) (KindDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.kinds[key]
	return def, ok
}

// All returns all registered kinds, sorted by key for consistent ordering.
func (r *Registry) All() []KindDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]KindDefinition, 0, len(r.kinds))
	for _, def := range r.kinds {
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Key < defs[j].Key
	})

	return defs
}

// Count returns the number of registered kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}
