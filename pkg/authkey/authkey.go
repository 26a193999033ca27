// Package authkey manages the secondary auth-key credential. An auth key is
// unrelated to the session cookie and serves a different channel; it shares
// the revocation pattern of at most one non-revoked key per user, enforced
// by rotating inside a single transaction.
package authkey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// keyBytes is the random length of a generated key value.
	keyBytes = 32

	// DefaultTTL is the lifetime of a freshly generated key.
	DefaultTTL = 24 * time.Hour
)

// Key is one auth-key record. Value is only populated at generation time;
// reads after that return metadata only.
type Key struct {
	ID        int64     `json:"-"`
	UserID    int64     `json:"userId"`
	Value     string    `json:"key,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Revoked   bool      `json:"-"`
}

// Active reports whether the key is usable at time now.
func (k *Key) Active(now time.Time) bool {
	return !k.Revoked && now.Before(k.ExpiresAt)
}

// Store defines the interface for auth-key persistence.
type Store interface {
	// GetActive returns the user's non-revoked, non-expired key.
	// Returns nil, nil if none exists.
	GetActive(ctx context.Context, userID int64) (*Key, error)

	// Rotate revokes all of the user's existing keys and inserts the new
	// one atomically, so concurrent rotations cannot leave zero or
	// multiple active keys.
	Rotate(ctx context.Context, key *Key) error

	// RevokeAll revokes the user's keys and returns how many were live.
	RevokeAll(ctx context.Context, userID int64) (int, error)
}

// Status summarizes a user's auth-key state without exposing the value.
type Status struct {
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Service implements auth-key operations over a Store.
type Service struct {
	store Store
	ttl   time.Duration
}

// NewService creates a service. A zero ttl falls back to DefaultTTL.
func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl}
}

// Status reports whether the user currently holds an active key.
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	key, err := s.store.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up auth key: %w", err)
	}
	if key == nil {
		return &Status{}, nil
	}
	return &Status{
		Active:    true,
		CreatedAt: &key.CreatedAt,
		ExpiresAt: &key.ExpiresAt,
	}, nil
}

// Generate rotates the user's auth key: all prior keys are revoked and a new
// 32-byte hex key with the configured lifetime is issued. The value is
// returned exactly once.
func (s *Service) Generate(ctx context.Context, userID int64) (*Key, error) {
	value, err := generateKeyValue()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	key := &Key{
		UserID:    userID,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Rotate(ctx, key); err != nil {
		return nil, fmt.Errorf("rotating auth key: %w", err)
	}
	return key, nil
}

// Revoke revokes the user's keys and reports how many were live.
func (s *Service) Revoke(ctx context.Context, userID int64) (int, error) {
	count, err := s.store.RevokeAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoking auth keys: %w", err)
	}
	return count, nil
}

// generateKeyValue produces a 32-byte cryptographically random hex string.
func generateKeyValue() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating key bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
