// Package redisstore implements the Redis Store backend. Each kind maps
// to a hash of name → JSON-encoded form, with a companion list preserving
// insertion order and a hash of assigned record IDs.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/satchel/pkg/codec"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

const (
	keyPrefix   = "satchel:"
	attachPing  = 5 * time.Second
	orderSuffix = ":order"
	idSuffix    = ":ids"
)

// Backend implements types.Store over a Redis server.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	reg      *types.Registry
	client   *redis.Client
	enc      *codec.Encoder
	dec      *codec.Decoder
}

// NewBackend creates a detached Redis backend over the given registry.
func NewBackend(reg *types.Registry) *Backend {
	return &Backend{reg: reg}
}

// Attach connects to the server at config.RedisAddr and verifies it with
// a ping. Returns ErrAlreadyAttached when called while attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), attachPing)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("pinging redis at %s: %w", config.RedisAddr, err)
	}

	opts := codec.FromConfig(config)
	b.client = client
	b.enc = codec.NewEncoder(opts)
	b.dec = codec.NewDecoder(b.reg, opts)
	b.attached = true
	return nil
}

// Detach closes the client connection. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil
	}
	b.attached = false
	err := b.client.Close()
	b.client = nil
	return err
}

// Bucket returns the bucket for a registered kind.
func (b *Backend) Bucket(kind string) (types.Bucket, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	if _, err := b.reg.Lookup(kind); err != nil {
		return nil, fmt.Errorf("%q: %w", kind, types.ErrBucketNotFound)
	}
	return &bucket{backend: b, kind: kind}, nil
}

type bucket struct {
	backend *Backend
	kind    string
}

func (bk *bucket) hashKey() string  { return keyPrefix + bk.kind }
func (bk *bucket) orderKey() string { return keyPrefix + bk.kind + orderSuffix }
func (bk *bucket) idKey() string    { return keyPrefix + bk.kind + idSuffix }

func (bk *bucket) Get(name string) (*types.Entity, error) {
	b := bk.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	raw, err := b.client.HGet(context.Background(), bk.hashKey(), name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s %q: %w", bk.kind, name, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s %q: %w", bk.kind, name, err)
	}
	return bk.decode(raw)
}

func (bk *bucket) Put(e *types.Entity) (string, error) {
	b := bk.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}
	if e.Kind().Name() != bk.kind {
		return "", fmt.Errorf("bucket %q cannot hold %q: %w", bk.kind, e.Kind().Name(), types.ErrTypeMismatch)
	}

	f, err := b.enc.Encode(e)
	if err != nil {
		return "", err
	}
	raw, err := f.ToJSON()
	if err != nil {
		return "", fmt.Errorf("encoding %s %q: %w", bk.kind, e.Name(), err)
	}

	ctx := context.Background()
	existed, err := b.client.HExists(ctx, bk.hashKey(), e.Name()).Result()
	if err != nil {
		return "", fmt.Errorf("storing %s %q: %w", bk.kind, e.Name(), err)
	}
	if err := b.client.HSet(ctx, bk.hashKey(), e.Name(), string(raw)).Err(); err != nil {
		return "", fmt.Errorf("storing %s %q: %w", bk.kind, e.Name(), err)
	}
	if !existed {
		if err := b.client.RPush(ctx, bk.orderKey(), e.Name()).Err(); err != nil {
			return "", fmt.Errorf("ordering %s %q: %w", bk.kind, e.Name(), err)
		}
	}

	recordID, err := b.client.HGet(ctx, bk.idKey(), e.Name()).Result()
	if errors.Is(err, redis.Nil) {
		u, uerr := uuid.NewV7()
		if uerr != nil {
			return "", uerr
		}
		recordID = u.String()
		if err := b.client.HSet(ctx, bk.idKey(), e.Name(), recordID).Err(); err != nil {
			return "", fmt.Errorf("storing record id for %s %q: %w", bk.kind, e.Name(), err)
		}
	} else if err != nil {
		return "", fmt.Errorf("fetching record id for %s %q: %w", bk.kind, e.Name(), err)
	}
	return recordID, nil
}

func (bk *bucket) Delete(name string) error {
	b := bk.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	ctx := context.Background()
	n, err := b.client.HDel(ctx, bk.hashKey(), name).Result()
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", bk.kind, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", bk.kind, name, types.ErrNotFound)
	}
	if err := b.client.LRem(ctx, bk.orderKey(), 0, name).Err(); err != nil {
		return fmt.Errorf("deleting %s %q from order: %w", bk.kind, name, err)
	}
	if err := b.client.HDel(ctx, bk.idKey(), name).Err(); err != nil {
		return fmt.Errorf("deleting record id for %s %q: %w", bk.kind, name, err)
	}
	return nil
}

func (bk *bucket) List() ([]*types.Entity, error) {
	b := bk.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	ctx := context.Background()
	names, err := b.client.LRange(ctx, bk.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", bk.kind, err)
	}
	out := make([]*types.Entity, 0, len(names))
	for _, name := range names {
		raw, err := b.client.HGet(ctx, bk.hashKey(), name).Result()
		if errors.Is(err, redis.Nil) {
			// Order list and hash drifted; skip the stale name.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetching %s %q: %w", bk.kind, name, err)
		}
		e, err := bk.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (bk *bucket) decode(raw string) (*types.Entity, error) {
	f, err := codec.FromJSON([]byte(raw))
	if err != nil {
		return nil, err
	}
	return bk.backend.dec.DecodeAs(f, bk.kind)
}
