// Package session provides the durable registry of active sessions. The
// registry is the sole source of truth for which sessions are presently
// allowed to exist: a cryptographically valid credential whose session id is
// no longer registered does not authorize anything.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActiveSession records the metadata of one issued credential.
type ActiveSession struct {
	// ID is the session identifier carried inside the credential.
	ID string `json:"sessionId"`

	// UserID is the owning user.
	UserID int64 `json:"userId"`

	// IP is the address observed when the session was created.
	IP string `json:"ip"`

	// DeviceInfo is the device descriptor (typically the User-Agent).
	DeviceInfo string `json:"deviceInfo"`

	// CreatedAt is when the credential was issued.
	CreatedAt time.Time `json:"createdAt"`

	// LastActivity is the most recent request seen for this session.
	LastActivity time.Time `json:"lastActivity"`

	// ExpiresAt mirrors the credential's expiry.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store defines the interface for active-session persistence.
type Store interface {
	// Create registers a new session.
	Create(ctx context.Context, s *ActiveSession) error

	// Get retrieves one of the user's sessions by id.
	// Returns nil, nil if absent or expired.
	Get(ctx context.Context, userID int64, id string) (*ActiveSession, error)

	// List returns the user's non-expired sessions, newest first.
	List(ctx context.Context, userID int64) ([]*ActiveSession, error)

	// Touch updates LastActivity.
	Touch(ctx context.Context, userID int64, id string) error

	// Delete revokes one session. Scoped to the owning user and
	// idempotent: deleting an absent session reports false, not an error.
	Delete(ctx context.Context, userID int64, id string) (bool, error)

	// DeleteAll revokes every session of the user and returns the count.
	DeleteAll(ctx context.Context, userID int64) (int, error)

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error

	// Close stops background routines and releases resources.
	Close() error
}

// NewID generates a session identifier.
func NewID() string {
	return uuid.NewString()
}

// New creates a session record for a fresh credential issuance.
func New(userID int64, ip, deviceInfo string, ttl time.Duration) *ActiveSession {
	now := time.Now()
	return &ActiveSession{
		ID:           NewID(),
		UserID:       userID,
		IP:           ip,
		DeviceInfo:   deviceInfo,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ttl),
	}
}
