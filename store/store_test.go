package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/ficoreafrica/ficore/schema"
	"github.com/ficoreafrica/ficore/store"
)

func newStore(mt *mtest.T) *store.Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return store.New(mt.DB, store.DefaultConfig(), logger)
}

// matched is the reply to an update that matched n documents.
func matched(n int32) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: n},
		bson.E{Key: "nModified", Value: n},
	)
}

func found(ns string, docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, docs...)
}

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.Database != "ficodb" {
		t.Errorf("expected Database 'ficodb', got %q", cfg.Database)
	}
	if cfg.MinPoolSize != 5 || cfg.MaxPoolSize != 50 {
		t.Errorf("expected pool 5..50, got %d..%d", cfg.MinPoolSize, cfg.MaxPoolSize)
	}
	if cfg.ServerSelectionTimeout != 5*time.Second {
		t.Errorf("expected 5s server selection timeout, got %v", cfg.ServerSelectionTimeout)
	}
}

func TestCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("budget gets an ObjectID", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := s.CreateBudget(context.Background(), store.Doc{
			"user_id":           "ada",
			"income":            250000,
			"fixed_expenses":    80000,
			"variable_expenses": 45000,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(id); err != nil {
			t.Errorf("expected ObjectID hex id, got %q", id)
		}
	})

	mt.Run("shopping list gets a UUID", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := s.CreateShoppingList(context.Background(), store.Doc{
			"name":        "Weekly",
			"session_id":  "sess-1",
			"budget":      20000.0,
			"total_spent": 0.0,
			"status":      schema.ListActive,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != 36 {
			t.Errorf("expected UUID id, got %q", id)
		}
	})

	mt.Run("invalid document is never written", func(mt *mtest.T) {
		s := newStore(mt)

		_, err := s.CreateBill(context.Background(), store.Doc{
			"user_id":   "ada",
			"bill_name": "Rent",
			"amount":    120000.0,
			"due_date":  time.Now(),
		})
		var verr *schema.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Field != "status" {
			t.Errorf("expected field 'status', got %q", verr.Field)
		}
	})

	mt.Run("duplicate user", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		_, err := s.CreateUser(context.Background(), store.Doc{"username": "ada", "email": "Ada@Example.com"})
		if !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	mt.Run("feedback rating out of range", func(mt *mtest.T) {
		s := newStore(mt)

		_, err := s.CreateFeedback(context.Background(), store.Doc{"tool_name": "budget", "rating": 9})
		if !errors.Is(err, schema.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestCreateShoppingItems(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	item := func(name string) store.Doc {
		return store.Doc{
			"user_id":    nil,
			"session_id": "sess-1",
			"list_id":    "list-1",
			"name":       name,
			"quantity":   2,
			"price":      500.0,
			"category":   "fruits",
			"status":     schema.ItemToBuy,
		}
	}

	mt.Run("all inserted", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(2)}))

		ids, err := s.CreateShoppingItems(context.Background(), []store.Doc{item("apple"), item("mango")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("expected 2 ids, got %d", len(ids))
		}
	})

	mt.Run("one invalid item writes nothing", func(mt *mtest.T) {
		s := newStore(mt)
		bad := item("pear")
		bad["quantity"] = 0

		_, err := s.CreateShoppingItems(context.Background(), []store.Doc{item("apple"), bad})
		if !errors.Is(err, schema.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID()

	mt.Run("modified", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(matched(1))

		modified, err := s.UpdateBill(context.Background(), id.Hex(), store.Doc{"status": schema.BillPaid})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !modified {
			t.Error("expected modified")
		}
	})

	mt.Run("same values", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(matched(0), found("ficodb.bills", bson.D{{Key: "_id", Value: id}}))

		modified, err := s.UpdateBill(context.Background(), id.Hex(), store.Doc{"status": schema.BillPaid})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if modified {
			t.Error("expected no modification when values are unchanged")
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(matched(0), found("ficodb.bills"))

		modified, err := s.UpdateBill(context.Background(), id.Hex(), store.Doc{"status": schema.BillPaid})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if modified {
			t.Error("expected false with ErrNotFound")
		}
	})

	mt.Run("rejected fields", func(mt *mtest.T) {
		s := newStore(mt)
		ctx := context.Background()

		tests := []struct {
			name string
			call func() (bool, error)
		}{
			{"managed field", func() (bool, error) {
				return s.UpdateBill(ctx, id.Hex(), store.Doc{"created_at": time.Now()})
			}},
			{"id", func() (bool, error) {
				return s.UpdateBudget(ctx, id.Hex(), store.Doc{"_id": "other"})
			}},
			{"bad enum", func() (bool, error) {
				return s.UpdateBill(ctx, id.Hex(), store.Doc{"status": "cancelled"})
			}},
			{"immutable reminder", func() (bool, error) {
				return s.UpdateBillReminder(ctx, id.Hex(), store.Doc{"message": "edited"})
			}},
		}
		for _, tt := range tests {
			if _, err := tt.call(); !errors.Is(err, schema.ErrValidation) {
				t.Errorf("%s: expected ErrValidation, got %v", tt.name, err)
			}
		}
	})
}

func TestGetShoppingItems_Normalizes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("defaults", func(mt *mtest.T) {
		s := newStore(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(found("ficodb.shopping_items",
			bson.D{
				{Key: "_id", Value: oid},
				{Key: "list_id", Value: "list-1"},
				{Key: "name", Value: "rice"},
				{Key: "quantity", Value: int32(2)},
				{Key: "price", Value: 1500.0},
				{Key: "status", Value: schema.ItemToBuy},
			},
		))

		items, err := s.GetShoppingItems(context.Background(), store.Doc{"list_id": "list-1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(items))
		}
		it := items[0]
		if it.ID != oid.Hex() {
			t.Errorf("expected id %s, got %s", oid.Hex(), it.ID)
		}
		if it.Unit != schema.DefaultUnit || it.Frequency != 1 {
			t.Errorf("expected defaults (piece, 1), got (%q, %d)", it.Unit, it.Frequency)
		}
	})

	mt.Run("empty result is not nil", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(found("ficodb.budgets"))

		budgets, err := s.GetBudgets(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if budgets == nil || len(budgets) != 0 {
			t.Errorf("expected empty slice, got %#v", budgets)
		}
	})
}

func TestUserCache(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	user := func(balance float64) bson.D {
		return bson.D{
			{Key: "_id", Value: "ada"},
			{Key: "email", Value: "ada@example.com"},
			{Key: "ficore_credit_balance", Value: balance},
		}
	}

	mt.Run("cached until balance changes", func(mt *mtest.T) {
		s := newStore(mt)
		ctx := context.Background()

		mt.AddMockResponses(found("ficodb.users", user(10)))
		u, err := s.GetUser(ctx, "ada")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.UserID != "ada" || u.Role != store.DefaultRole {
			t.Errorf("expected normalized user, got %+v", u)
		}

		// No response queued: served from cache.
		if _, err := s.GetUser(ctx, "ada"); err != nil {
			t.Fatalf("expected cached user, got %v", err)
		}

		mt.AddMockResponses(matched(1))
		if ok, err := s.UpdateUserBalance(ctx, "ada", 5); err != nil || !ok {
			t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
		}

		mt.AddMockResponses(found("ficodb.users", user(15)))
		u, err = s.GetUser(ctx, "ada")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.CreditBalance != 15 {
			t.Errorf("expected fresh balance 15, got %v", u.CreditBalance)
		}
	})

	mt.Run("missing user", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(found("ficodb.users"))

		_, err := s.GetUserByEmail(context.Background(), "Nobody@Example.com")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("balance of missing user", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(matched(0))

		ok, err := s.UpdateUserBalance(context.Background(), "ghost", 5)
		if !errors.Is(err, store.ErrNotFound) || ok {
			t.Errorf("expected (false, ErrNotFound), got (%v, %v)", ok, err)
		}
	})
}

func TestDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID().Hex()

	mt.Run("deleted", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))

		if err := s.DeleteBudget(context.Background(), id); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))

		if err := s.DeleteShoppingItem(context.Background(), id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDenyCreditRequest(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID()

	mt.Run("pending", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(matched(1))

		if err := s.DenyCreditRequest(context.Background(), id.Hex(), "admin"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	mt.Run("already decided", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(matched(0), found("ficodb.credit_requests", bson.D{{Key: "_id", Value: id}}))

		err := s.DenyCreditRequest(context.Background(), id.Hex(), "admin")
		if !errors.Is(err, store.ErrNotPending) {
			t.Errorf("expected ErrNotPending, got %v", err)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(matched(0), found("ficodb.credit_requests"))

		err := s.DenyCreditRequest(context.Background(), id.Hex(), "admin")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEnsureAdmin(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates missing admin", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(found("ficodb.users"), mtest.CreateSuccessResponse())

		if err := s.EnsureAdmin(context.Background(), "Admin", "admin@ficore.local", "s3cret"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	mt.Run("resets existing admin password", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(
			found("ficodb.users", bson.D{
				{Key: "_id", Value: "root"},
				{Key: "email", Value: "admin@ficore.local"},
			}),
			matched(1),
		)

		if err := s.EnsureAdmin(context.Background(), "admin", "admin@ficore.local", "s3cret"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	mt.Run("lookup failure", func(mt *mtest.T) {
		s := newStore(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Message: "bad query", Name: "BadValue",
		}))

		if err := s.EnsureAdmin(context.Background(), "admin", "admin@ficore.local", "s3cret"); err == nil {
			t.Error("expected error")
		}
	})
}
