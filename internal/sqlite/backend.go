// Package sqlite implements the SQLite Store backend. Entities are
// persisted as JSON-encoded forms, one row per (kind, name), with rowid
// preserving insertion order.
package sqlite

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/satchel/pkg/codec"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// dbFileName is the database file created inside the data directory.
const dbFileName = "satchel.db"

// Backend implements types.Store over a SQLite database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	reg      *types.Registry
	db       *sql.DB
	enc      *codec.Encoder
	dec      *codec.Decoder
}

// NewBackend creates a detached SQLite backend over the given registry.
func NewBackend(reg *types.Registry) *Backend {
	return &Backend{reg: reg}
}

// Attach creates the data directory if needed, opens the database, and
// applies the schema. Returns ErrAlreadyAttached when called while
// attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("applying schema: %w", err)
	}

	opts := codec.FromConfig(config)
	b.db = db
	b.enc = codec.NewEncoder(opts)
	b.dec = codec.NewDecoder(b.reg, opts)
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil
	}
	b.attached = false
	err := b.db.Close()
	b.db = nil
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

// bucket scopes row access to one kind.
type bucket struct {
	backend *Backend
	kind    string
}

func (bk *bucket) Get(name string) (*types.Entity, error) {
	b := bk.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	var raw string
	err := b.db.QueryRow(
		`SELECT form FROM entities WHERE kind = ? AND name = ?`,
		bk.kind, name,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", bk.kind, name, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s %q: %w", bk.kind, name, err)
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
	now := time.Now().UTC().Format(time.RFC3339Nano)

	// Reuse the record ID when the name already exists.
	var recordID string
	err = b.db.QueryRow(
		`SELECT record_id FROM entities WHERE kind = ? AND name = ?`,
		bk.kind, e.Name(),
	).Scan(&recordID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		u, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		recordID = u.String()
		_, err = b.db.Exec(
			`INSERT INTO entities (record_id, kind, name, form, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			recordID, bk.kind, e.Name(), string(raw), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("inserting %s %q: %w", bk.kind, e.Name(), err)
		}
	case err != nil:
		return "", fmt.Errorf("querying %s %q: %w", bk.kind, e.Name(), err)
	default:
		_, err = b.db.Exec(
			`UPDATE entities SET form = ?, updated_at = ? WHERE record_id = ?`,
			string(raw), now, recordID,
		)
		if err != nil {
			return "", fmt.Errorf("updating %s %q: %w", bk.kind, e.Name(), err)
		}
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

	res, err := b.db.Exec(`DELETE FROM entities WHERE kind = ? AND name = ?`, bk.kind, name)
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", bk.kind, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", bk.kind, name, types.ErrNotFound)
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

	rows, err := b.db.Query(`SELECT form FROM entities WHERE kind = ? ORDER BY rowid`, bk.kind)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", bk.kind, err)
	}
	defer rows.Close()

	var out []*types.Entity
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		e, err := bk.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (bk *bucket) decode(raw string) (*types.Entity, error) {
	f, err := codec.FromJSON([]byte(raw))
	if err != nil {
		return nil, err
	}
	return bk.backend.dec.DecodeAs(f, bk.kind)
}
