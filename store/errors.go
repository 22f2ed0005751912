package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/ficoreafrica/ficore/schema"
)

var (
	// ErrNotFound is returned when the target document doesn't exist.
	ErrNotFound = errors.New("ficore: document not found")

	// ErrAlreadyExists is returned when a write violates a unique index.
	ErrAlreadyExists = errors.New("ficore: document already exists")

	// ErrUnavailable is returned when the database can't be reached in time.
	ErrUnavailable = errors.New("ficore: database unavailable")

	// ErrNotPending is returned when a credit request was already approved or denied.
	ErrNotPending = errors.New("ficore: credit request is not pending")
)

// codeDocumentValidationFailure is the server error for a write rejected by
// a collection validator.
const codeDocumentValidationFailure = 121

// mapError translates driver errors into package errors. The cause stays in
// the message.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotPending), errors.Is(err, schema.ErrValidation):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, topology.ErrServerSelectionTimeout):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeDocumentValidationFailure) {
		return fmt.Errorf("%w: rejected by server: %v", schema.ErrValidation, err)
	}
	return err
}
