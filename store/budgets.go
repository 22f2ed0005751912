package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ficoreafrica/ficore/schema"
)

// CreateBudget inserts a budget. surplus_deficit is computed when omitted.
func (s *Store) CreateBudget(ctx context.Context, doc Doc) (string, error) {
	doc = clone(doc)
	if _, ok := doc["surplus_deficit"]; !ok {
		if v, ok := budgetSurplus(doc); ok {
			doc["surplus_deficit"] = v
		}
	}
	return s.insert(ctx, schema.Budgets, doc)
}

// GetBudgets returns the budgets matching filter, newest first.
func (s *Store) GetBudgets(ctx context.Context, filter Doc) ([]Budget, error) {
	return find[Budget](ctx, s, schema.Budgets, filter, bson.D{{Key: "created_at", Value: -1}})
}

// UpdateBudget merges fields into the budget. When the update carries every
// input of surplus_deficit and not surplus_deficit itself, it is recomputed.
func (s *Store) UpdateBudget(ctx context.Context, id string, fields Doc) (bool, error) {
	if _, ok := fields["surplus_deficit"]; !ok {
		if v, ok := budgetSurplus(fields); ok {
			fields = clone(fields)
			fields["surplus_deficit"] = v
		}
	}
	return s.update(ctx, schema.Budgets, id, fields)
}

// DeleteBudget removes a budget.
func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	return s.deleteByID(ctx, schema.Budgets, id)
}
