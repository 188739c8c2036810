// Package mongostore implements the MongoDB Store backend. Each kind maps
// to a collection; documents hold the entity name, the assigned record ID,
// the JSON-encoded form, and an insertion sequence for ordered listing.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mesh-intelligence/satchel/pkg/codec"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

const (
	defaultDatabase = "satchel"
	attachTimeout   = 10 * time.Second
)

// document is the stored shape of one entity.
type document struct {
	Name      string `bson:"_id"`
	RecordID  string `bson:"record_id"`
	Form      string `bson:"form"`
	Seq       int64  `bson:"seq"`
	UpdatedAt string `bson:"updated_at"`
}

// Backend implements types.Store over a MongoDB deployment.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	reg      *types.Registry
	client   *mongo.Client
	db       *mongo.Database
	enc      *codec.Encoder
	dec      *codec.Decoder
}

// NewBackend creates a detached MongoDB backend over the given registry.
func NewBackend(reg *types.Registry) *Backend {
	return &Backend{reg: reg}
}

// Attach connects to config.MongoURI and verifies the deployment with a
// ping. The database name comes from config.MongoDB, defaulting to
// "satchel". Returns ErrAlreadyAttached when called while attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI))
	if err != nil {
		return fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("pinging mongo: %w", err)
	}

	dbName := config.MongoDB
	if dbName == "" {
		dbName = defaultDatabase
	}
	opts := codec.FromConfig(config)
	b.client = client
	b.db = client.Database(dbName)
	b.enc = codec.NewEncoder(opts)
	b.dec = codec.NewDecoder(b.reg, opts)
	b.attached = true
	return nil
}

// Detach disconnects the client. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil
	}
	b.attached = false
	ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
	defer cancel()
	err := b.client.Disconnect(ctx)
	b.client = nil
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

type bucket struct {
	backend *Backend
	kind    string
}

func (bk *bucket) coll() *mongo.Collection {
	return bk.backend.db.Collection(bk.kind)
}

func (bk *bucket) Get(name string) (*types.Entity, error) {
	b := bk.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	var doc document
	err := bk.coll().FindOne(context.Background(), bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %q: %w", bk.kind, name, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s %q: %w", bk.kind, name, err)
	}
	return bk.decode(doc.Form)
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
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var existing document
	err = bk.coll().FindOne(ctx, bson.M{"_id": e.Name()}).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		u, uerr := uuid.NewV7()
		if uerr != nil {
			return "", uerr
		}
		doc := document{
			Name:      e.Name(),
			RecordID:  u.String(),
			Form:      string(raw),
			Seq:       time.Now().UnixNano(),
			UpdatedAt: now,
		}
		if _, err := bk.coll().InsertOne(ctx, doc); err != nil {
			return "", fmt.Errorf("inserting %s %q: %w", bk.kind, e.Name(), err)
		}
		return doc.RecordID, nil
	case err != nil:
		return "", fmt.Errorf("fetching %s %q: %w", bk.kind, e.Name(), err)
	default:
		_, err := bk.coll().UpdateOne(ctx,
			bson.M{"_id": e.Name()},
			bson.M{"$set": bson.M{"form": string(raw), "updated_at": now}},
		)
		if err != nil {
			return "", fmt.Errorf("updating %s %q: %w", bk.kind, e.Name(), err)
		}
		return existing.RecordID, nil
	}
}

func (bk *bucket) Delete(name string) error {
	b := bk.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	res, err := bk.coll().DeleteOne(context.Background(), bson.M{"_id": name})
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", bk.kind, name, err)
	}
	if res.DeletedCount == 0 {
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

	ctx := context.Background()
	cur, err := bk.coll().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"seq": 1}))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", bk.kind, err)
	}
	defer cur.Close(ctx)

	var out []*types.Entity
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		e, err := bk.decode(doc.Form)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (bk *bucket) decode(raw string) (*types.Entity, error) {
	f, err := codec.FromJSON([]byte(raw))
	if err != nil {
		return nil, err
	}
	return bk.backend.dec.DecodeAs(f, bk.kind)
}
