package types

import (
	"errors"
	"fmt"
	"sync"
)

// Registry errors.
var (
	ErrUnknownKind   = errors.New("unknown kind")
	ErrDuplicateKind = errors.New("kind already registered")
)

// Registry resolves type discriminators to kinds. It is the schema
// collaborator the codec consults during deserialization.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// Register adds a kind. Registering a second kind under the same name
// returns ErrDuplicateKind; schemas are immutable once published.
func (r *Registry) Register(k *Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.name]; exists {
		return fmt.Errorf("kind %q: %w", k.name, ErrDuplicateKind)
	}
	r.kinds[k.name] = k
	r.order = append(r.order, k.name)
	return nil
}

// Lookup resolves a kind name, returning ErrUnknownKind when it was never
// registered.
func (r *Registry) Lookup(name string) (*Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownKind)
	}
	return k, nil
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Kind, len(r.order))
	for i, name := range r.order {
		out[i] = r.kinds[name]
	}
	return out
}
