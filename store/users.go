package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/ficoreafrica/ficore/schema"
)

const (
	// DefaultRole is assigned to users created without a role.
	DefaultRole = "personal"

	// SignupBonus is the Ficore Credit balance of a new user.
	SignupBonus = 10.0
)

// CreateUser inserts a user. A plain "password" is replaced by its bcrypt
// hash, the email is lowercased, _id defaults to the username (or a UUID)
// and user_id to _id. Role, admin flag, setup status and the signup bonus
// balance get their defaults when omitted.
func (s *Store) CreateUser(ctx context.Context, doc Doc) (string, error) {
	doc = clone(doc)
	if err := hashPassword(doc); err != nil {
		return "", err
	}
	if email, ok := doc["email"].(string); ok {
		doc["email"] = strings.ToLower(email)
	}
	if _, ok := doc["_id"]; !ok {
		if name, ok := doc["username"].(string); ok && name != "" {
			doc["_id"] = name
		} else {
			doc["_id"] = uuid.NewString()
		}
	}
	setDefault(doc, "user_id", idString(doc["_id"]))
	setDefault(doc, "ficore_credit_balance", SignupBonus)
	setDefault(doc, "role", DefaultRole)
	setDefault(doc, "is_admin", false)
	setDefault(doc, "setup_complete", false)

	id, err := s.insert(ctx, schema.Users, doc)
	if err != nil {
		return "", err
	}
	s.invalidateUser(id)
	return id, nil
}

// GetUser returns the user with the given _id, from cache when possible.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	return s.lookupUser(ctx, "id:"+id, bson.M{"_id": idFilter(schema.Users, id)})
}

// GetUserByEmail returns the user with the given email, from cache when
// possible. The email is matched case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(email)
	return s.lookupUser(ctx, "email:"+email, bson.M{"email": email})
}

func (s *Store) lookupUser(ctx context.Context, key string, filter bson.M) (User, error) {
	if u, ok := s.users.Get(key); ok {
		return u, nil
	}

	gen := s.userGeneration()
	start := time.Now()
	var u User
	err := mapError(s.db.Collection(schema.Users).FindOne(ctx, filter).Decode(&u))
	if s.userRead != nil {
		s.userRead()
	}
	observe(schema.Users, "get", start, err)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "user lookup failed", "key", key, "session_id", SessionID(ctx), "error", err)
		}
		return User{}, fmt.Errorf("get user %s: %w", key, err)
	}
	NormalizeUser(&u)
	s.cacheUser(key, gen, u)
	return u, nil
}

// UpdateUser merges fields into the user. A plain "password" is hashed.
func (s *Store) UpdateUser(ctx context.Context, id string, fields Doc) (bool, error) {
	fields = clone(fields)
	if err := hashPassword(fields); err != nil {
		return false, err
	}
	if email, ok := fields["email"].(string); ok {
		fields["email"] = strings.ToLower(email)
	}
	modified, err := s.update(ctx, schema.Users, id, fields)
	s.invalidateUser(id)
	return modified, err
}

// UpdateUserBalance atomically adds amount (which may be negative) to the
// user's Ficore Credit balance. Negative results are not rejected.
func (s *Store) UpdateUserBalance(ctx context.Context, userID string, amount float64) (bool, error) {
	start := time.Now()
	res, err := s.db.Collection(schema.Users).UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{"ficore_credit_balance": amount}},
	)
	if err == nil && res.MatchedCount == 0 {
		err = ErrNotFound
	}
	err = mapError(err)
	observe(schema.Users, "inc_balance", start, err)
	s.invalidateUser(userID)

	if err != nil {
		s.logger.ErrorContext(ctx, "balance update failed", "user_id", userID, "amount", amount, "session_id", SessionID(ctx), "error", err)
		return false, fmt.Errorf("update balance of %s: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "updated balance", "user_id", userID, "amount", amount, "session_id", SessionID(ctx))
	return res.ModifiedCount > 0, nil
}

// EnsureAdmin creates the admin account, or resets its password when an
// account with the email already exists.
func (s *Store) EnsureAdmin(ctx context.Context, username, email, password string) error {
	username = strings.ToLower(username)
	u, err := s.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		_, err = s.CreateUser(ctx, Doc{
			"_id":            username,
			"username":       username,
			"email":          email,
			"password":       password,
			"is_admin":       true,
			"role":           "admin",
			"lang":           "en",
			"setup_complete": true,
			"display_name":   username,
		})
		return err
	case err != nil:
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.Collection(schema.Users).UpdateOne(ctx,
		bson.M{"_id": idFilter(schema.Users, u.ID)},
		bson.M{"$set": bson.M{"password_hash": string(hash)}},
	)
	s.invalidateUser(u.ID)
	if err = mapError(err); err != nil {
		return fmt.Errorf("reset admin password: %w", err)
	}
	s.logger.InfoContext(ctx, "admin password reset", "user_id", u.UserID)
	return nil
}

// CheckPassword reports whether password matches the user's stored hash.
func CheckPassword(u User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// invalidateUser drops every cached lookup of the user with the given _id
// or user_id.
func (s *Store) invalidateUser(id string) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	s.userGen++
	for _, key := range s.users.Keys() {
		if u, ok := s.users.Peek(key); ok && (u.ID == id || u.UserID == id) {
			s.users.Remove(key)
		}
	}
}

func (s *Store) userGeneration() uint64 {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	return s.userGen
}

// cacheUser stores u unless a user was invalidated since gen was read.
func (s *Store) cacheUser(key string, gen uint64, u User) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	if s.userGen == gen {
		s.users.Add(key, u)
	}
}

func hashPassword(doc Doc) error {
	pw, ok := doc["password"].(string)
	if !ok {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	doc["password_hash"] = string(hash)
	delete(doc, "password")
	return nil
}

func setDefault(doc Doc, key string, value any) {
	if _, ok := doc[key]; !ok {
		doc[key] = value
	}
}
