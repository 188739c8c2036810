// Package store provides the public factory for Store backends, keeping
// the implementations internal.
//
// Example:
//
//	st := store.New(reg, types.BackendSQLite)
//	err := st.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".satchel",
//	})
//	defer st.Detach()
package store

import (
	"fmt"

	"github.com/mesh-intelligence/satchel/internal/memory"
	"github.com/mesh-intelligence/satchel/internal/mongostore"
	"github.com/mesh-intelligence/satchel/internal/redisstore"
	"github.com/mesh-intelligence/satchel/internal/sqlite"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

// New creates a detached backend of the named kind over the given
// registry. The returned store must be attached with a matching Config
// before use. Unknown backend names return ErrBackendUnknown.
func New(reg *types.Registry, backend string) (types.Store, error) {
	switch backend {
	case types.BackendMemory:
		return memory.NewBackend(reg), nil
	case types.BackendSQLite:
		return sqlite.NewBackend(reg), nil
	case types.BackendRedis:
		return redisstore.NewBackend(reg), nil
	case types.BackendMongo:
		return mongostore.NewBackend(reg), nil
	default:
		return nil, fmt.Errorf("%q: %w", backend, types.ErrBackendUnknown)
	}
}

// Open creates a backend from the config and attaches it in one step.
func Open(reg *types.Registry, cfg types.Config) (types.Store, error) {
	st, err := New(reg, cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := st.Attach(cfg); err != nil {
		return nil, err
	}
	return st, nil
}
