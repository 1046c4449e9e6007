package provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry is a concurrency-safe table of named provider factories. It
// only knows how to build providers; initialized instances belong to
// the Manager, which owns their lifecycle.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry returns a Registry with no factories registered.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

// RegisterFactory stores factory under name, replacing any previous
// registration with the same name.
func (r *Registry[T]) RegisterFactory(name string, factory Factory[T]) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Create builds a fresh provider from the named factory. Every call
// invokes the factory again; callers wanting a shared instance keep the
// result themselves.
func (r *Registry[T]) Create(name string, cfg map[string]any) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("no factory registered for provider %q", name)
	}
	return factory(cfg)
}

// Names returns the registered factory names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
