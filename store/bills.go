package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ficoreafrica/ficore/schema"
)

// CreateBill inserts a bill.
func (s *Store) CreateBill(ctx context.Context, doc Doc) (string, error) {
	return s.insert(ctx, schema.Bills, clone(doc))
}

// GetBills returns the bills matching filter, earliest due first.
func (s *Store) GetBills(ctx context.Context, filter Doc) ([]Bill, error) {
	return find[Bill](ctx, s, schema.Bills, filter, bson.D{{Key: "due_date", Value: 1}})
}

// UpdateBill merges fields into the bill.
func (s *Store) UpdateBill(ctx context.Context, id string, fields Doc) (bool, error) {
	return s.update(ctx, schema.Bills, id, fields)
}

// DeleteBill removes a bill. Reminders already sent for it are kept.
func (s *Store) DeleteBill(ctx context.Context, id string) error {
	return s.deleteByID(ctx, schema.Bills, id)
}

// CreateBillReminder records a sent reminder. read_status defaults to false.
func (s *Store) CreateBillReminder(ctx context.Context, doc Doc) (string, error) {
	doc = clone(doc)
	if _, ok := doc["read_status"]; !ok {
		doc["read_status"] = false
	}
	return s.insert(ctx, schema.BillReminders, doc)
}

// GetBillReminders returns the reminders matching filter, most recent first.
func (s *Store) GetBillReminders(ctx context.Context, filter Doc) ([]BillReminder, error) {
	return find[BillReminder](ctx, s, schema.BillReminders, filter, bson.D{{Key: "sent_at", Value: -1}})
}

// UpdateBillReminder changes the read status of a reminder. Reminders are
// otherwise immutable.
func (s *Store) UpdateBillReminder(ctx context.Context, id string, fields Doc) (bool, error) {
	return s.update(ctx, schema.BillReminders, id, fields, "read_status")
}
