package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ficoreafrica/ficore/schema"
)

// codeIndexKeySpecsConflict is returned by createIndexes when an index with
// the requested name already exists with a different key pattern.
const codeIndexKeySpecsConflict = 86

// ErrIndexConflict is returned by Catalog.CreateIndex when the index name is
// already taken by an index with other keys.
var ErrIndexConflict = errors.New("ficore: index key specs conflict")

// Catalog is the subset of database administration the reconciler needs.
type Catalog interface {
	CollectionNames(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string, validator bson.M) error
	SetValidator(ctx context.Context, name string, validator bson.M) error

	// ListIndexes returns every live index, including _id_. Name holds the
	// live index name.
	ListIndexes(ctx context.Context, collection string) ([]schema.Index, error)
	CreateIndex(ctx context.Context, collection string, idx schema.Index) error
	DropIndex(ctx context.Context, collection, name string) error
}

// MongoCatalog implements Catalog on a MongoDB database.
type MongoCatalog struct {
	db *mongo.Database
}

// NewMongoCatalog wraps db.
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{db: db}
}

func (c *MongoCatalog) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

func (c *MongoCatalog) CreateCollection(ctx context.Context, name string, validator bson.M) error {
	opts := options.CreateCollection()
	if len(validator) > 0 {
		opts.SetValidator(validator)
	}
	if err := c.db.CreateCollection(ctx, name, opts); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// SetValidator replaces the collection's validator with collMod. An empty
// validator clears it.
func (c *MongoCatalog) SetValidator(ctx context.Context, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := c.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("collMod %s: %w", name, err)
	}
	return nil
}

// liveIndex is one listIndexes entry.
type liveIndex struct {
	Name                    string `bson:"name"`
	Key                     bson.D `bson:"key"`
	Unique                  bool   `bson:"unique,omitempty"`
	Sparse                  bool   `bson:"sparse,omitempty"`
	ExpireAfterSeconds      *int32 `bson:"expireAfterSeconds,omitempty"`
	PartialFilterExpression bson.D `bson:"partialFilterExpression,omitempty"`
}

func (l liveIndex) index() schema.Index {
	keys := make([]schema.Key, 0, len(l.Key))
	for _, e := range l.Key {
		keys = append(keys, schema.Key{Field: e.Key, Order: keyOrder(e.Value)})
	}
	return schema.Index{
		Keys:               keys,
		Name:               l.Name,
		Unique:             l.Unique,
		Sparse:             l.Sparse,
		ExpireAfterSeconds: l.ExpireAfterSeconds,
		PartialFilter:      l.PartialFilterExpression,
	}
}

// keyOrder normalizes the numeric direction of a key. Special index types
// ("text", "2dsphere") map to 0 and never equal a declared key.
func keyOrder(v any) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func (c *MongoCatalog) ListIndexes(ctx context.Context, collection string) ([]schema.Index, error) {
	cur, err := c.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []schema.Index
	for cur.Next(ctx) {
		var l liveIndex
		if err := cur.Decode(&l); err != nil {
			return nil, fmt.Errorf("decode index of %s: %w", collection, err)
		}
		out = append(out, l.index())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list indexes %s: %w", collection, err)
	}
	return out, nil
}

func (c *MongoCatalog) CreateIndex(ctx context.Context, collection string, idx schema.Index) error {
	opts := options.Index().SetName(idx.IndexName())
	if idx.Unique {
		opts.SetUnique(true)
	}
	if idx.Sparse {
		opts.SetSparse(true)
	}
	if idx.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*idx.ExpireAfterSeconds)
	}
	if len(idx.PartialFilter) > 0 {
		opts.SetPartialFilterExpression(idx.PartialFilter)
	}

	_, err := c.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    idx.KeyDoc(),
		Options: opts,
	})
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeIndexKeySpecsConflict) {
		return fmt.Errorf("%w: %s.%s: %v", ErrIndexConflict, collection, idx.IndexName(), err)
	}
	return fmt.Errorf("create index %s.%s: %w", collection, idx.IndexName(), err)
}

func (c *MongoCatalog) DropIndex(ctx context.Context, collection, name string) error {
	if _, err := c.db.Collection(collection).Indexes().DropOne(ctx, name); err != nil {
		return fmt.Errorf("drop index %s.%s: %w", collection, name, err)
	}
	return nil
}
