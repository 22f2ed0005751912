package store

import (
	"context"

	"github.com/ficoreafrica/ficore/schema"
)

// CreateFeedback records a tool rating.
func (s *Store) CreateFeedback(ctx context.Context, doc Doc) (string, error) {
	return s.insert(ctx, schema.Feedback, clone(doc))
}
