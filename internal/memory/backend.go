// Package memory implements the in-process Store backend. It is the
// default backend and the substrate the codec and CLI tests run against.
package memory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// Backend holds one insertion-ordered container per registered kind.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	reg      *types.Registry
	buckets  map[string]*bucket
}

// NewBackend creates a detached in-memory backend over the given registry.
func NewBackend(reg *types.Registry) *Backend {
	return &Backend{reg: reg}
}

// Attach initializes one bucket per registered kind.
// Returns ErrAlreadyAttached when called while attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	b.buckets = make(map[string]*bucket)
	for _, k := range b.reg.Kinds() {
		b.buckets[k.Name()] = &bucket{
			backend:   b,
			container: types.NewContainer(k),
			ids:       make(map[string]string),
		}
	}
	b.attached = true
	return nil
}

// Detach drops all held entities. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attached = false
	b.buckets = nil
	return nil
}

// Bucket returns the bucket for a registered kind.
func (b *Backend) Bucket(kind string) (types.Bucket, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	bk, ok := b.buckets[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, types.ErrBucketNotFound)
	}
	return bk, nil
}

// bucket stores entities of one kind in a container and tracks the record
// ID assigned to each name.
type bucket struct {
	backend   *Backend
	container *types.Container
	ids       map[string]string
}

func (bk *bucket) Get(name string) (*types.Entity, error) {
	bk.backend.mu.RLock()
	defer bk.backend.mu.RUnlock()
	if !bk.backend.attached {
		return nil, types.ErrStoreDetached
	}
	return bk.container.Get(name)
}

func (bk *bucket) Put(e *types.Entity) (string, error) {
	bk.backend.mu.Lock()
	defer bk.backend.mu.Unlock()
	if !bk.backend.attached {
		return "", types.ErrStoreDetached
	}
	if err := bk.container.Put(e); err != nil {
		return "", err
	}
	id, ok := bk.ids[e.Name()]
	if !ok {
		// UUID v7 record IDs, assigned once per name.
		u, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		id = u.String()
		bk.ids[e.Name()] = id
	}
	return id, nil
}

func (bk *bucket) Delete(name string) error {
	bk.backend.mu.Lock()
	defer bk.backend.mu.Unlock()
	if !bk.backend.attached {
		return types.ErrStoreDetached
	}
	if err := bk.container.Remove(name); err != nil {
		return err
	}
	delete(bk.ids, name)
	return nil
}

func (bk *bucket) List() ([]*types.Entity, error) {
	bk.backend.mu.RLock()
	defer bk.backend.mu.RUnlock()
	if !bk.backend.attached {
		return nil, types.ErrStoreDetached
	}
	return bk.container.Entities(), nil
}
