package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ficoreafrica/ficore/schema"
)

// CreateShoppingList inserts a list under a new UUID. items defaults to an
// empty array and the owner email is lowercased.
func (s *Store) CreateShoppingList(ctx context.Context, doc Doc) (string, error) {
	doc = clone(doc)
	doc["_id"] = uuid.NewString()
	if email, ok := doc["email"].(string); ok {
		doc["email"] = strings.ToLower(email)
	}
	if _, ok := doc["items"]; !ok {
		doc["items"] = bson.A{}
	}
	return s.insert(ctx, schema.ShoppingLists, doc)
}

// GetShoppingLists returns the lists matching filter, most recently updated
// first, normalized.
func (s *Store) GetShoppingLists(ctx context.Context, filter Doc) ([]ShoppingList, error) {
	lists, err := find[ShoppingList](ctx, s, schema.ShoppingLists, filter, bson.D{{Key: "updated_at", Value: -1}})
	if err != nil {
		return nil, err
	}
	for i := range lists {
		NormalizeShoppingList(&lists[i])
	}
	return lists, nil
}

// UpdateShoppingList merges fields into the list. Replacing items without
// total_spent recomputes total_spent from the bought items.
func (s *Store) UpdateShoppingList(ctx context.Context, id string, fields Doc) (bool, error) {
	if items, ok := fields["items"]; ok {
		if _, ok := fields["total_spent"]; !ok {
			if total, ok := listTotalFromDoc(items); ok {
				fields = clone(fields)
				fields["total_spent"] = total
			}
		}
	}
	return s.update(ctx, schema.ShoppingLists, id, fields)
}

// DeleteShoppingList deletes a list and every item referencing it in one
// transaction. With an owner carrying both user id and email the list must
// also match them. It returns (false, ErrNotFound) and deletes nothing when
// no list matches.
func (s *Store) DeleteShoppingList(ctx context.Context, listID string, owner *Owner) (bool, error) {
	start := time.Now()
	filter := bson.M{"_id": listID}
	if owner != nil && owner.UserID != "" && owner.Email != "" {
		filter["user_id"] = owner.UserID
		filter["email"] = strings.ToLower(owner.Email)
	}

	res, err := s.withTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		lr, err := s.db.Collection(schema.ShoppingLists).DeleteOne(sc, filter)
		if err != nil {
			return nil, err
		}
		if lr.DeletedCount == 0 {
			return nil, ErrNotFound
		}
		ir, err := s.db.Collection(schema.ShoppingItems).DeleteMany(sc, bson.M{"list_id": listID})
		if err != nil {
			return nil, err
		}
		return ir.DeletedCount, nil
	})
	err = mapError(err)
	observe(schema.ShoppingLists, "delete", start, err)

	log := s.logger.With("list_id", listID, "session_id", SessionID(ctx))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.InfoContext(ctx, "no shopping list found for deletion")
			return false, ErrNotFound
		}
		log.ErrorContext(ctx, "delete shopping list failed", "error", err)
		return false, fmt.Errorf("delete shopping list %s: %w", listID, err)
	}
	log.InfoContext(ctx, "deleted shopping list", "items_deleted", res)
	return true, nil
}

// CreateShoppingItem inserts an item. unit defaults to "piece".
func (s *Store) CreateShoppingItem(ctx context.Context, doc Doc) (string, error) {
	doc = clone(doc)
	if _, ok := doc["unit"]; !ok {
		doc["unit"] = schema.DefaultUnit
	}
	return s.insert(ctx, schema.ShoppingItems, doc)
}

// CreateShoppingItems inserts items in one request. Every item is validated
// first; nothing is written when any is invalid.
func (s *Store) CreateShoppingItems(ctx context.Context, docs []Doc) ([]string, error) {
	start := time.Now()
	sid := SessionID(ctx)
	if len(docs) > 0 {
		sid = sessionID(ctx, docs[0])
	}

	prepared := make([]any, 0, len(docs))
	var err error
	for i, d := range docs {
		d = clone(d)
		if _, ok := d["unit"]; !ok {
			d["unit"] = schema.DefaultUnit
		}
		if err = s.prepare(schema.ShoppingItems, d); err != nil {
			err = fmt.Errorf("item %d: %w", i, err)
			break
		}
		prepared = append(prepared, d)
	}

	var ids []string
	if err == nil && len(prepared) > 0 {
		var res *mongo.InsertManyResult
		res, err = s.db.Collection(schema.ShoppingItems).InsertMany(ctx, prepared)
		if err == nil {
			ids = make([]string, len(res.InsertedIDs))
			for i, id := range res.InsertedIDs {
				ids[i] = idString(id)
			}
		}
	}
	err = mapError(err)
	observe(schema.ShoppingItems, "create_many", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "bulk create failed", "collection", schema.ShoppingItems, "session_id", sid, "error", err)
		return nil, fmt.Errorf("create %s: %w", schema.ShoppingItems, err)
	}
	s.logger.InfoContext(ctx, "created shopping items", "count", len(ids), "session_id", sid)
	return ids, nil
}

// GetShoppingItems returns the items matching filter, newest first,
// normalized.
func (s *Store) GetShoppingItems(ctx context.Context, filter Doc) ([]ShoppingItem, error) {
	items, err := find[ShoppingItem](ctx, s, schema.ShoppingItems, filter, bson.D{{Key: "created_at", Value: -1}})
	if err != nil {
		return nil, err
	}
	for i := range items {
		NormalizeShoppingItem(&items[i])
	}
	return items, nil
}

// UpdateShoppingItem merges fields into the item.
func (s *Store) UpdateShoppingItem(ctx context.Context, id string, fields Doc) (bool, error) {
	return s.update(ctx, schema.ShoppingItems, id, fields)
}

// DeleteShoppingItem removes a single item.
func (s *Store) DeleteShoppingItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, schema.ShoppingItems, id)
}
