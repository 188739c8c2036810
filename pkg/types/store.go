package types

import "errors"

// Store is the backend-agnostic persistence interface. Callers attach to a
// backend, access per-kind buckets, and detach when done.
type Store interface {
	// Attach connects the store to the backend described by config.
	// Returns ErrAlreadyAttached when called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: repeated calls
	// succeed. After Detach, bucket operations return ErrStoreDetached.
	Detach() error

	// Bucket returns the bucket for a registered kind.
	// Returns ErrBucketNotFound when the kind is not registered.
	Bucket(kind string) (Bucket, error)
}

// Bucket provides uniform persistence operations for one entity kind.
type Bucket interface {
	// Get retrieves the entity with the given name.
	// Returns ErrNotFound if no entity exists with that name.
	Get(name string) (*Entity, error)

	// Put creates or replaces the entity under its name and returns the
	// record ID the backend assigned to it.
	Put(e *Entity) (string, error)

	// Delete removes the entity with the given name.
	// Returns ErrNotFound if no entity exists with that name.
	Delete(name string) error

	// List returns every entity in the bucket in stable order.
	List() ([]*Entity, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrBucketNotFound  = errors.New("bucket not found")
)
