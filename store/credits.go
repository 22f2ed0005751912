package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ficoreafrica/ficore/schema"
)

// CreateCreditRequest inserts a credit request. status defaults to pending.
func (s *Store) CreateCreditRequest(ctx context.Context, doc Doc) (string, error) {
	doc = clone(doc)
	setDefault(doc, "status", schema.RequestPending)
	return s.insert(ctx, schema.CreditRequests, doc)
}

// GetCreditRequests returns the requests matching filter, newest first.
func (s *Store) GetCreditRequests(ctx context.Context, filter Doc) ([]CreditRequest, error) {
	return find[CreditRequest](ctx, s, schema.CreditRequests, filter, bson.D{{Key: "created_at", Value: -1}})
}

// UpdateCreditRequest merges fields into the request.
func (s *Store) UpdateCreditRequest(ctx context.Context, id string, fields Doc) (bool, error) {
	return s.update(ctx, schema.CreditRequests, id, fields)
}

// GetCreditTransactions returns the ledger entries matching filter, most
// recent first.
func (s *Store) GetCreditTransactions(ctx context.Context, filter Doc) ([]CreditTransaction, error) {
	return find[CreditTransaction](ctx, s, schema.CreditTransactions, filter, bson.D{{Key: "date", Value: -1}})
}

// RecordCreditTransaction appends a ledger entry and applies its amount to
// the user's balance in one transaction. It fails with ErrNotFound, writing
// nothing, when the user does not exist.
func (s *Store) RecordCreditTransaction(ctx context.Context, doc Doc) (string, error) {
	start := time.Now()
	doc = clone(doc)
	sid := sessionID(ctx, doc)

	var id string
	err := s.prepare(schema.CreditTransactions, doc)
	if err == nil {
		userID, _ := doc["user_id"].(string)
		amount, _ := number(doc["amount"])
		var res any
		res, err = s.withTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
			if err := s.incBalance(sc, userID, amount); err != nil {
				return nil, err
			}
			ins, err := s.db.Collection(schema.CreditTransactions).InsertOne(sc, doc)
			if err != nil {
				return nil, err
			}
			return ins.InsertedID, nil
		})
		if err == nil {
			id = idString(res)
			s.invalidateUser(userID)
		}
	}
	err = mapError(err)
	observe(schema.CreditTransactions, "record", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "record credit transaction failed", "session_id", sid, "error", err)
		return "", fmt.Errorf("record credit transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "recorded credit transaction", "id", id, "user_id", doc["user_id"], "amount", doc["amount"], "session_id", sid)
	return id, nil
}

// ApproveCreditRequest moves a pending request to approved, records a
// purchase transaction and credits the user, all in one transaction.
func (s *Store) ApproveCreditRequest(ctx context.Context, requestID, adminID string) error {
	start := time.Now()
	var userID string

	_, err := s.withTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		requests := s.db.Collection(schema.CreditRequests)
		byID := bson.M{"_id": idValue(requestID)}

		var req CreditRequest
		if err := requests.FindOne(sc, byID).Decode(&req); err != nil {
			return nil, err
		}
		if req.Status != schema.RequestPending {
			return nil, ErrNotPending
		}
		userID = req.UserID

		now := s.now()
		res, err := requests.UpdateOne(sc,
			bson.M{"_id": byID["_id"], "status": schema.RequestPending},
			bson.M{"$set": bson.M{"status": schema.RequestApproved, "admin_id": adminID, "updated_at": now}},
		)
		if err != nil {
			return nil, err
		}
		if res.ModifiedCount == 0 {
			return nil, ErrNotPending
		}

		tx := Doc{
			"user_id":              req.UserID,
			"amount":               req.Amount,
			"type":                 TxPurchase,
			"ref":                  requestID,
			"payment_method":       req.PaymentMethod,
			"facilitated_by_agent": adminID,
			"date":                 now,
		}
		if err := s.prepare(schema.CreditTransactions, tx); err != nil {
			return nil, err
		}
		if _, err := s.db.Collection(schema.CreditTransactions).InsertOne(sc, tx); err != nil {
			return nil, err
		}
		return nil, s.incBalance(sc, req.UserID, req.Amount)
	})
	if err == nil {
		s.invalidateUser(userID)
	}
	err = mapError(err)
	observe(schema.CreditRequests, "approve", start, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "approve credit request failed", "request_id", requestID, "admin_id", adminID, "error", err)
		return fmt.Errorf("approve credit request %s: %w", requestID, err)
	}
	s.logger.InfoContext(ctx, "approved credit request", "request_id", requestID, "admin_id", adminID, "user_id", userID)
	return nil
}

// DenyCreditRequest moves a pending request to denied.
func (s *Store) DenyCreditRequest(ctx context.Context, requestID, adminID string) error {
	start := time.Now()
	byID := bson.M{"_id": idValue(requestID)}
	res, err := s.db.Collection(schema.CreditRequests).UpdateOne(ctx,
		bson.M{"_id": byID["_id"], "status": schema.RequestPending},
		bson.M{"$set": bson.M{"status": schema.RequestDenied, "admin_id": adminID, "updated_at": s.now()}},
	)
	if err == nil && res.MatchedCount == 0 {
		err = s.mustExist(ctx, schema.CreditRequests, byID)
		if err == nil {
			err = ErrNotPending
		}
	}
	err = mapError(err)
	observe(schema.CreditRequests, "deny", start, err)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotPending) {
			s.logger.ErrorContext(ctx, "deny credit request failed", "request_id", requestID, "error", err)
		}
		return fmt.Errorf("deny credit request %s: %w", requestID, err)
	}
	s.logger.InfoContext(ctx, "denied credit request", "request_id", requestID, "admin_id", adminID)
	return nil
}

func (s *Store) incBalance(ctx context.Context, userID string, amount float64) error {
	res, err := s.db.Collection(schema.Users).UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{"ficore_credit_balance": amount}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
