// Package store is the MongoDB repository for Ficore's personal-finance data.
//
// Each entity (budgets, bills, bill reminders, shopping lists and items,
// users, credit requests and transactions, feedback) gets create, read,
// update and, where the application needs it, delete functions. Documents
// are passed in as [Doc] field maps and read back as typed structs.
//
// # Validation
//
// Creates stamp store-managed timestamps, apply documented defaults, coerce
// numbers to the BSON types declared in [schema.Default] and validate the
// result before anything is written. Updates validate the fields they set.
// Both return a *schema.ValidationError wrapping [schema.ErrValidation].
//
// # Updates
//
// Update functions return (true, nil) when the document changed,
// (false, nil) when it already held the given values and
// (false, [ErrNotFound]) when no document has the id. updated_at is only
// stamped on a real change.
//
// # Transactions
//
// [Store.DeleteShoppingList], [Store.RecordCreditTransaction] and
// [Store.ApproveCreditRequest] run in a multi-document transaction and need
// a replica set. [Store.UpdateUserBalance] is a single atomic $inc.
//
// # Errors
//
//   - [ErrNotFound] - target document missing
//   - [ErrAlreadyExists] - duplicate key
//   - [ErrUnavailable] - network failure, timeout or no reachable server
//   - [ErrNotPending] - credit request already decided
//   - [schema.ErrValidation] - document outside its declared domain
package store
