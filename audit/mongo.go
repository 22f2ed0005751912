package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ficoreafrica/ficore/schema"
)

// MongoSink appends entries to the tool_usage collection.
type MongoSink struct {
	coll *mongo.Collection
}

// NewMongoSink creates a sink writing to db's tool_usage collection.
func NewMongoSink(db *mongo.Database) *MongoSink {
	return &MongoSink{coll: db.Collection(schema.ToolUsage)}
}

// Write inserts e.
func (s *MongoSink) Write(ctx context.Context, e Entry) error {
	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert tool usage: %w", err)
	}
	return nil
}
