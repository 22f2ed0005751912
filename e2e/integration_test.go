//go:build e2e

// Package e2e contains end-to-end integration tests against a real MongoDB
// replica set (transactions need one).
// Run with: FICORE_E2E_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0 go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ficoreafrica/ficore/reconcile"
	"github.com/ficoreafrica/ficore/schema"
	"github.com/ficoreafrica/ficore/store"
)

// Database names are unique per test run to avoid conflicts.
const dbPrefix = "ficore_e2e"

var (
	testID    string
	client    *mongo.Client
	db        *mongo.Database
	testStore *store.Store
	logger    = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	uri := os.Getenv("FICORE_E2E_MONGO_URI")
	if uri == "" {
		fmt.Println("FICORE_E2E_MONGO_URI not set; skipping e2e tests")
		os.Exit(0)
	}

	testID = uuid.New().String()[:8]
	cfg := store.DefaultConfig()
	cfg.URI = uri
	cfg.Database = fmt.Sprintf("%s_%s", dbPrefix, testID)
	fmt.Printf("Test ID: %s\nDatabase: %s\n", testID, cfg.Database)

	ctx := context.Background()
	var err error
	client, err = store.Connect(ctx, cfg)
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}
	db = client.Database(cfg.Database)
	testStore = store.New(db, cfg, logger)

	if _, err := reconcile.New(reconcile.NewMongoCatalog(db), testStore.Registry(), logger).Run(ctx); err != nil {
		fmt.Printf("Failed to reconcile: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := db.Drop(ctx); err != nil {
		fmt.Printf("Warning: failed to drop database: %v\n", err)
	}
	_ = client.Disconnect(ctx)
	os.Exit(code)
}

func newUser(t *testing.T) store.User {
	t.Helper()
	ctx := context.Background()
	name := "user_" + uuid.New().String()[:8]
	id, err := testStore.CreateUser(ctx, store.Doc{"username": name, "email": name + "@Example.com", "password": "pw"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, err := testStore.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u
}

func itemDoc(listID, name string) store.Doc {
	return store.Doc{
		"user_id":    nil,
		"session_id": "sess-" + testID,
		"list_id":    listID,
		"name":       name,
		"quantity":   2,
		"price":      750.0,
		"category":   "grains",
		"status":     schema.ItemToBuy,
	}
}

func countItems(t *testing.T, listID string) int64 {
	t.Helper()
	n, err := db.Collection(schema.ShoppingItems).CountDocuments(context.Background(), bson.M{"list_id": listID})
	if err != nil {
		t.Fatalf("count items: %v", err)
	}
	return n
}

// --- Reconciler Tests ---

func TestReconcile_Idempotent(t *testing.T) {
	r := reconcile.New(reconcile.NewMongoCatalog(db), testStore.Registry(), logger)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(report.CollectionsCreated) != 0 || len(report.IndexesCreated) != 0 || len(report.IndexesDropped) != 0 {
		t.Errorf("expected no structural changes, got %+v", report)
	}
	if len(report.IndexesSkipped) == 0 {
		t.Error("expected existing indexes to be kept")
	}
}

func TestReconcile_RecreatesChangedIndex(t *testing.T) {
	ctx := context.Background()
	coll := db.Collection(schema.Users)
	if _, err := coll.Indexes().DropOne(ctx, "user_id_1"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	// Same keys, different options and name.
	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}); err != nil {
		t.Fatalf("create index: %v", err)
	}

	report, err := reconcile.New(reconcile.NewMongoCatalog(db), testStore.Registry(), logger).Run(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(report.IndexesDropped) != 1 || len(report.IndexesCreated) != 1 {
		t.Errorf("expected the users index recreated, got %+v", report)
	}
}

// --- Validation Tests ---

func TestCreate_EveryRequiredFieldEnforced(t *testing.T) {
	ctx := context.Background()
	due := time.Now().Add(48 * time.Hour)

	tests := []struct {
		entity string
		create func(store.Doc) (string, error)
		base   store.Doc
	}{
		{schema.Budgets, func(d store.Doc) (string, error) { return testStore.CreateBudget(ctx, d) },
			store.Doc{"user_id": "ada", "income": 5000.0, "fixed_expenses": 1000.0, "variable_expenses": 500.0}},
		{schema.Bills, func(d store.Doc) (string, error) { return testStore.CreateBill(ctx, d) },
			store.Doc{"user_id": "ada", "bill_name": "Rent", "amount": 100.0, "due_date": due, "status": schema.BillPending}},
		{schema.BillReminders, func(d store.Doc) (string, error) { return testStore.CreateBillReminder(ctx, d) },
			store.Doc{"user_id": "ada", "notification_id": "n1", "type": schema.ChannelSMS, "message": "due"}},
		{schema.ShoppingLists, func(d store.Doc) (string, error) { return testStore.CreateShoppingList(ctx, d) },
			store.Doc{"name": "L", "session_id": "s", "budget": 1.0, "total_spent": 0.0, "status": schema.ListSaved}},
		{schema.ShoppingItems, func(d store.Doc) (string, error) { return testStore.CreateShoppingItem(ctx, d) },
			itemDoc("l1", "rice")},
		{schema.CreditRequests, func(d store.Doc) (string, error) { return testStore.CreateCreditRequest(ctx, d) },
			store.Doc{"user_id": "ada", "amount": 5.0, "payment_method": "card"}},
		{schema.Feedback, func(d store.Doc) (string, error) { return testStore.CreateFeedback(ctx, d) },
			store.Doc{"tool_name": "budget", "rating": 5}},
	}
	for _, tt := range tests {
		for field := range tt.base {
			t.Run(tt.entity+"/"+field, func(t *testing.T) {
				doc := store.Doc{}
				for k, v := range tt.base {
					if k != field {
						doc[k] = v
					}
				}
				_, err := tt.create(doc)
				var verr *schema.ValidationError
				if !errors.As(err, &verr) || verr.Field != field {
					t.Errorf("expected validation error on %q, got %v", field, err)
				}
			})
		}
	}
}

func TestServerValidator_RejectsBypassedWrite(t *testing.T) {
	_, err := db.Collection(schema.Bills).InsertOne(context.Background(), bson.M{"user_id": "ada"})
	if err == nil {
		t.Fatal("expected the collection validator to reject the document")
	}
}

// --- Repository Tests ---

func TestShoppingItem_RoundTripDefaults(t *testing.T) {
	ctx := context.Background()
	listID := uuid.NewString()

	id, err := testStore.CreateShoppingItem(ctx, itemDoc(listID, "rice"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	items, err := testStore.GetShoppingItems(ctx, store.Doc{"list_id": listID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 1 || items[0].ID != id {
		t.Fatalf("expected item %s, got %+v", id, items)
	}
	it := items[0]
	if it.Unit != "piece" || it.Frequency != 1 || it.Quantity != 2 {
		t.Errorf("expected unit=piece frequency=1 quantity=2, got %+v", it)
	}
	if it.CreatedAt.IsZero() || it.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be stamped")
	}
}

func TestUpdate_NoOpDetection(t *testing.T) {
	ctx := context.Background()
	id, err := testStore.CreateBill(ctx, store.Doc{
		"user_id":   "ada",
		"bill_name": "Internet",
		"amount":    15000.0,
		"due_date":  time.Now().Add(72 * time.Hour),
		"status":    schema.BillPending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	modified, err := testStore.UpdateBill(ctx, id, store.Doc{"status": schema.BillPaid})
	if err != nil || !modified {
		t.Fatalf("expected (true, nil), got (%v, %v)", modified, err)
	}
	modified, err = testStore.UpdateBill(ctx, id, store.Doc{"status": schema.BillPaid})
	if err != nil || modified {
		t.Errorf("expected (false, nil) for identical values, got (%v, %v)", modified, err)
	}
	modified, err = testStore.UpdateBill(ctx, uuid.NewString(), store.Doc{"status": schema.BillPaid})
	if !errors.Is(err, store.ErrNotFound) || modified {
		t.Errorf("expected (false, ErrNotFound), got (%v, %v)", modified, err)
	}
}

func TestUser_DuplicateRejected(t *testing.T) {
	u := newUser(t)
	_, err := testStore.CreateUser(context.Background(), store.Doc{"username": u.ID})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

// --- Transaction Tests ---

func TestDeleteShoppingList_Cascades(t *testing.T) {
	ctx := context.Background()
	listID, err := testStore.CreateShoppingList(ctx, store.Doc{
		"name": "Weekly", "session_id": "sess-" + testID, "budget": 10000.0,
		"total_spent": 0.0, "status": schema.ListActive,
	})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if _, err := testStore.CreateShoppingItems(ctx, []store.Doc{itemDoc(listID, "rice"), itemDoc(listID, "beans")}); err != nil {
		t.Fatalf("create items: %v", err)
	}

	deleted, err := testStore.DeleteShoppingList(ctx, listID, nil)
	if err != nil || !deleted {
		t.Fatalf("expected (true, nil), got (%v, %v)", deleted, err)
	}
	if n := countItems(t, listID); n != 0 {
		t.Errorf("expected items removed with the list, %d left", n)
	}
}

func TestDeleteShoppingList_WrongOwnerTouchesNothing(t *testing.T) {
	ctx := context.Background()
	u := newUser(t)
	listID, err := testStore.CreateShoppingList(ctx, store.Doc{
		"name": "Owned", "user_id": u.UserID, "email": u.Email, "session_id": "sess-" + testID,
		"budget": 5000.0, "total_spent": 0.0, "status": schema.ListActive,
	})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if _, err := testStore.CreateShoppingItem(ctx, itemDoc(listID, "salt")); err != nil {
		t.Fatalf("create item: %v", err)
	}

	deleted, err := testStore.DeleteShoppingList(ctx, listID, &store.Owner{UserID: "someone-else", Email: "x@example.com"})
	if !errors.Is(err, store.ErrNotFound) || deleted {
		t.Fatalf("expected (false, ErrNotFound), got (%v, %v)", deleted, err)
	}
	if n := countItems(t, listID); n != 1 {
		t.Errorf("expected the item to survive, got %d", n)
	}
	lists, err := testStore.GetShoppingLists(ctx, store.Doc{"_id": listID})
	if err != nil || len(lists) != 1 {
		t.Errorf("expected the list to survive, got %v (%v)", lists, err)
	}
}

func TestDeleteShoppingList_OwnerCascades(t *testing.T) {
	ctx := context.Background()
	u := newUser(t)
	listID, err := testStore.CreateShoppingList(ctx, store.Doc{
		"name": "Mine", "user_id": u.UserID, "email": "Mixed." + u.Email, "session_id": "sess-" + testID,
		"budget": 5000.0, "total_spent": 0.0, "status": schema.ListActive,
	})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	items := []store.Doc{itemDoc(listID, "rice"), itemDoc(listID, "beans"), itemDoc(listID, "oil")}
	if _, err := testStore.CreateShoppingItems(ctx, items); err != nil {
		t.Fatalf("create items: %v", err)
	}

	owner := &store.Owner{UserID: u.UserID, Email: strings.ToUpper("Mixed." + u.Email)}
	deleted, err := testStore.DeleteShoppingList(ctx, listID, owner)
	if err != nil || !deleted {
		t.Fatalf("expected (true, nil), got (%v, %v)", deleted, err)
	}
	if n := countItems(t, listID); n != 0 {
		t.Errorf("expected items removed with the list, %d left", n)
	}
	lists, err := testStore.GetShoppingLists(ctx, store.Doc{"_id": listID})
	if err != nil || len(lists) != 0 {
		t.Errorf("expected the list gone, got %v (%v)", lists, err)
	}
}

func TestUpdateShoppingList_IdenticalItemsNotModified(t *testing.T) {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)
	item := func() store.Doc {
		return store.Doc{
			"status": schema.ItemBought, "name": "rice", "price": 1500.0, "quantity": 2,
			"category": "grains", "created_at": at, "updated_at": at, "unit": "kg",
		}
	}
	listID, err := testStore.CreateShoppingList(ctx, store.Doc{
		"name": "Groceries", "session_id": "sess-" + testID, "budget": 5000.0,
		"total_spent": 6000.0, "status": schema.ListActive, "items": bson.A{item(), item()},
	})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	for i := 0; i < 5; i++ {
		modified, err := testStore.UpdateShoppingList(ctx, listID, store.Doc{"items": []store.Doc{item(), item()}})
		if err != nil || modified {
			t.Fatalf("attempt %d: expected (false, nil) for identical items, got (%v, %v)", i, modified, err)
		}
	}

	changed := item()
	changed["quantity"] = 3
	modified, err := testStore.UpdateShoppingList(ctx, listID, store.Doc{"items": []store.Doc{item(), changed}})
	if err != nil || !modified {
		t.Errorf("expected (true, nil) for a changed item, got (%v, %v)", modified, err)
	}
}

func TestUser_HexLookingUsername(t *testing.T) {
	ctx := context.Background()
	name := strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	id, err := testStore.CreateUser(ctx, store.Doc{"username": name, "email": name + "@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := testStore.GetUser(ctx, id); err != nil {
		t.Fatalf("expected user %q to be found, got %v", id, err)
	}
	modified, err := testStore.UpdateUser(ctx, id, store.Doc{"lang": "ha"})
	if err != nil || !modified {
		t.Errorf("expected (true, nil), got (%v, %v)", modified, err)
	}
}

func TestUpdateUserBalance_Concurrent(t *testing.T) {
	ctx := context.Background()
	u := newUser(t)
	if u.CreditBalance != store.SignupBonus {
		t.Fatalf("expected signup bonus %v, got %v", store.SignupBonus, u.CreditBalance)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, amount := range []float64{5, -3} {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			if _, err := testStore.UpdateUserBalance(ctx, u.UserID, amount); err != nil {
				errs <- err
			}
		}(amount)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("balance update: %v", err)
	}

	got, err := testStore.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.CreditBalance != 12 {
		t.Errorf("expected balance 12, got %v", got.CreditBalance)
	}
}

func TestApproveCreditRequest(t *testing.T) {
	ctx := context.Background()
	u := newUser(t)
	reqID, err := testStore.CreateCreditRequest(ctx, store.Doc{
		"user_id": u.UserID, "amount": 50.0, "payment_method": "card",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	if err := testStore.ApproveCreditRequest(ctx, reqID, "admin"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := testStore.ApproveCreditRequest(ctx, reqID, "admin"); !errors.Is(err, store.ErrNotPending) {
		t.Errorf("expected ErrNotPending on second approval, got %v", err)
	}

	got, _ := testStore.GetUser(ctx, u.ID)
	if got.CreditBalance != 60 {
		t.Errorf("expected balance 60, got %v", got.CreditBalance)
	}
	txs, err := testStore.GetCreditTransactions(ctx, store.Doc{"user_id": u.UserID})
	if err != nil || len(txs) != 1 || txs[0].Type != store.TxPurchase || txs[0].Ref != reqID {
		t.Errorf("expected one purchase transaction, got %+v (%v)", txs, err)
	}
}

func TestRecordCreditTransaction_MissingUserWritesNothing(t *testing.T) {
	ctx := context.Background()
	ghost := "ghost-" + testID

	_, err := testStore.RecordCreditTransaction(ctx, store.Doc{"user_id": ghost, "amount": -2.0, "type": store.TxSpend})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	txs, err := testStore.GetCreditTransactions(ctx, store.Doc{"user_id": ghost})
	if err != nil || len(txs) != 0 {
		t.Errorf("expected no ledger entry, got %+v (%v)", txs, err)
	}
}
