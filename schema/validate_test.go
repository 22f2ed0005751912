package schema_test

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ficoreafrica/ficore/schema"
)

func validItem() bson.M {
	now := time.Now()
	return bson.M{
		"user_id":    "alice",
		"session_id": "sess-1",
		"list_id":    "list-1",
		"name":       "Rice",
		"quantity":   2,
		"price":      1500.0,
		"category":   "grains",
		"status":     "to_buy",
		"created_at": now,
		"updated_at": now,
		"unit":       "kg",
	}
}

func TestValidate_AcceptsCompleteDocument(t *testing.T) {
	items := schema.Default().MustCollection(schema.ShoppingItems)
	doc := validItem()
	items.Coerce(doc)

	if err := items.Validate(doc); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
}

func TestValidate_EveryRequiredFieldEnforced(t *testing.T) {
	items := schema.Default().MustCollection(schema.ShoppingItems)

	for _, field := range items.Required {
		t.Run(field, func(t *testing.T) {
			doc := validItem()
			delete(doc, field)
			items.Coerce(doc)

			err := items.Validate(doc)
			if !errors.Is(err, schema.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *schema.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != field {
				t.Errorf("expected field %q, got %q", field, verr.Field)
			}
		})
	}
}

func TestValidate_Domains(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"quantity below minimum", "quantity", 0},
		{"negative price", "price", -1.0},
		{"unknown category", "category", "electronics"},
		{"unknown status", "status", "lost"},
		{"unknown unit", "unit", "gallon"},
		{"name wrong type", "name", 42},
		{"session null", "session_id", nil},
		{"fractional quantity", "quantity", 1.5},
	}

	items := schema.Default().MustCollection(schema.ShoppingItems)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validItem()
			doc[tt.field] = tt.value
			items.Coerce(doc)

			err := items.Validate(doc)
			var verr *schema.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestValidate_NullableUserID(t *testing.T) {
	items := schema.Default().MustCollection(schema.ShoppingItems)
	doc := validItem()
	doc["user_id"] = nil
	items.Coerce(doc)

	if err := items.Validate(doc); err != nil {
		t.Errorf("expected null user_id to be accepted, got %v", err)
	}
}

func TestValidatePartial_IgnoresMissingFields(t *testing.T) {
	bills := schema.Default().MustCollection(schema.Bills)

	if err := bills.ValidatePartial(bson.M{"status": "paid"}); err != nil {
		t.Errorf("expected partial update to pass, got %v", err)
	}
	if err := bills.ValidatePartial(bson.M{"status": "cancelled"}); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("expected ErrValidation for bad status, got %v", err)
	}
	if err := bills.ValidatePartial(bson.M{"amount": -10}); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("expected ErrValidation for negative amount, got %v", err)
	}
	if err := bills.ValidatePartial(bson.M{"nickname": "rent"}); err != nil {
		t.Errorf("expected undeclared field to pass, got %v", err)
	}
}

func TestValidate_EmbeddedListItems(t *testing.T) {
	lists := schema.Default().MustCollection(schema.ShoppingLists)
	now := time.Now()
	doc := bson.M{
		"name":        "Weekly",
		"session_id":  "sess-1",
		"budget":      10000,
		"total_spent": 0,
		"status":      "active",
		"created_at":  now,
		"updated_at":  now,
		"items": []bson.M{
			{"name": "Milk", "quantity": 1, "price": 900, "category": "dairy", "status": "to_buy", "created_at": now, "updated_at": now},
		},
	}
	lists.Coerce(doc)
	if err := lists.Validate(doc); err != nil {
		t.Fatalf("expected valid list, got %v", err)
	}

	doc["items"] = []bson.M{{"name": "Milk", "quantity": 1}}
	lists.Coerce(doc)
	if err := lists.Validate(doc); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("expected ErrValidation for incomplete embedded item, got %v", err)
	}
}

func TestFeedbackRatingRange(t *testing.T) {
	fb := schema.Default().MustCollection(schema.Feedback)

	for _, rating := range []int{0, 6} {
		doc := bson.M{"tool_name": "budget", "rating": rating, "timestamp": time.Now()}
		fb.Coerce(doc)
		if err := fb.Validate(doc); !errors.Is(err, schema.ErrValidation) {
			t.Errorf("rating %d: expected ErrValidation, got %v", rating, err)
		}
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &schema.ValidationError{Collection: "bills", Field: "status", Reason: "is required"}
	want := `ficore: invalid bills document: field "status" is required`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
