package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ficoreafrica/ficore/schema"
)

// NoSessionID is logged when neither the document nor the context carries a
// session id.
const NoSessionID = "no-session-id"

// Store provides MongoDB operations for every Ficore collection.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	config   Config
	registry *schema.Registry
	users    *lru.Cache[string, User]
	logger   *slog.Logger
	now      func() time.Time

	// userGen counts user invalidations. A lookup only fills the cache when
	// no invalidation happened while it was reading.
	userMu   sync.Mutex
	userGen  uint64
	userRead func()
}

// Connect opens a client for config and checks that the primary answers.
func Connect(ctx context.Context, config Config) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, config.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("connect: %w", mapError(err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", mapError(err))
	}
	return client, nil
}

// New creates a Store on db using the default schema registry.
// A nil logger uses slog.Default().
func New(db *mongo.Database, config Config, logger *slog.Logger) *Store {
	return NewWithRegistry(db, config, schema.Default(), logger)
}

// NewWithRegistry creates a Store validating against registry.
func NewWithRegistry(db *mongo.Database, config Config, registry *schema.Registry, logger *slog.Logger) *Store {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	// Size is positive after validate, so New cannot fail.
	users, _ := lru.New[string, User](config.UserCacheSize)
	return &Store{
		client:   db.Client(),
		db:       db,
		config:   config,
		registry: registry,
		users:    users,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Registry returns the schema registry documents are validated against.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

// Database returns the underlying database.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return mapError(s.client.Ping(ctx, readpref.Primary()))
}

type sessionKey struct{}

// WithSessionID returns a context whose log lines carry id as session_id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id stored in ctx, or NoSessionID.
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey{}).(string); ok && id != "" {
		return id
	}
	return NoSessionID
}

func sessionID(ctx context.Context, doc Doc) string {
	if id, ok := doc["session_id"].(string); ok && id != "" {
		return id
	}
	return SessionID(ctx)
}

func clone(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// idValue converts a caller-supplied id to the stored _id value: ObjectID
// hex strings become ObjectIDs, anything else (list UUIDs, usernames) is
// used as is.
func idValue(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// stringIDs lists the collections whose _id is a caller-chosen string
// (usernames, list UUIDs) that may happen to look like an ObjectID.
var stringIDs = map[string]bool{
	schema.Users:         true,
	schema.ShoppingLists: true,
}

// idFilter returns the _id match for id in collection.
func idFilter(collection, id string) any {
	v := idValue(id)
	if _, ok := v.(primitive.ObjectID); ok && stringIDs[collection] {
		return bson.M{"$in": bson.A{id, v}}
	}
	return v
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return fmt.Sprint(v)
}

// prepare stamps the absent managed fields of doc, coerces its numbers and
// validates it against the collection.
func (s *Store) prepare(collection string, doc Doc) error {
	c := s.registry.MustCollection(collection)
	now := s.now()
	for _, f := range c.Managed {
		if _, ok := doc[f]; !ok {
			doc[f] = now
		}
	}
	c.Coerce(doc)
	return c.Validate(doc)
}

// insert prepares doc and inserts it.
func (s *Store) insert(ctx context.Context, collection string, doc Doc) (string, error) {
	start := time.Now()
	sid := sessionID(ctx, doc)

	var id string
	err := s.prepare(collection, doc)
	if err == nil {
		var res *mongo.InsertOneResult
		res, err = s.db.Collection(collection).InsertOne(ctx, doc)
		if err == nil {
			id = idString(res.InsertedID)
		}
	}
	err = mapError(err)
	observe(collection, "create", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "create failed", "collection", collection, "session_id", sid, "error", err)
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	s.logger.InfoContext(ctx, "created document", "collection", collection, "id", id, "session_id", sid)
	return id, nil
}

func find[T any](ctx context.Context, s *Store, collection string, filter Doc, sort bson.D) ([]T, error) {
	start := time.Now()
	if filter == nil {
		filter = Doc{}
	}
	out := []T{}
	cur, err := s.db.Collection(collection).Find(ctx, filter, options.Find().SetSort(sort))
	if err == nil {
		err = cur.All(ctx, &out)
	}
	err = mapError(err)
	observe(collection, "find", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "find failed", "collection", collection, "session_id", SessionID(ctx), "error", err)
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return out, nil
}

// update applies fields with $set when at least one differs from the stored
// value. only, when non-empty, lists the fields callers may change.
func (s *Store) update(ctx context.Context, collection, id string, fields Doc, only ...string) (bool, error) {
	start := time.Now()
	modified, err := s.updateDoc(ctx, collection, id, clone(fields), only)
	err = mapError(err)
	observe(collection, "update", start, err)

	log := s.logger.With("collection", collection, "id", id, "session_id", sessionID(ctx, fields))
	switch {
	case err != nil:
		log.ErrorContext(ctx, "update failed", "error", err)
		return false, fmt.Errorf("update %s %s: %w", collection, id, err)
	case modified:
		log.InfoContext(ctx, "updated document")
	default:
		log.InfoContext(ctx, "no changes made to document")
	}
	return modified, nil
}

func (s *Store) updateDoc(ctx context.Context, collection, id string, fields Doc, only []string) (bool, error) {
	c := s.registry.MustCollection(collection)
	for k := range fields {
		if k == "_id" || c.IsManaged(k) || (len(only) > 0 && !contains(only, k)) {
			return false, &schema.ValidationError{Collection: collection, Field: k, Reason: "cannot be updated"}
		}
	}
	c.Coerce(fields)
	if err := c.ValidatePartial(fields); err != nil {
		return false, err
	}

	byID := bson.M{"_id": idFilter(collection, id)}
	if len(fields) == 0 {
		return false, s.mustExist(ctx, collection, byID)
	}

	differs := make(bson.A, 0, len(fields))
	for k, v := range fields {
		differs = append(differs, bson.M{k: bson.M{"$ne": v}})
	}
	filter := bson.M{"_id": byID["_id"], "$or": differs}

	set := clone(fields)
	for _, f := range c.Managed {
		if f == "updated_at" {
			set[f] = s.now()
		}
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	return false, s.mustExist(ctx, collection, byID)
}

// mustExist returns ErrNotFound when no document matches filter.
func (s *Store) mustExist(ctx context.Context, collection string, filter bson.M) error {
	err := s.db.Collection(collection).
		FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).
		Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *Store) deleteByID(ctx context.Context, collection, id string) error {
	start := time.Now()
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": idFilter(collection, id)})
	if err == nil && res.DeletedCount == 0 {
		err = ErrNotFound
	}
	err = mapError(err)
	observe(collection, "delete", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "delete failed", "collection", collection, "id", id, "session_id", SessionID(ctx), "error", err)
		return fmt.Errorf("delete %s %s: %w", collection, id, err)
	}
	s.logger.InfoContext(ctx, "deleted document", "collection", collection, "id", id, "session_id", SessionID(ctx))
	return nil
}

// withTransaction runs fn in a multi-document transaction, retrying on
// transient errors as the driver decides.
func (s *Store) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) (any, error)) (any, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)
	return sess.WithTransaction(ctx, fn)
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
