// Package user provides the user records the identity layer depends on:
// primary credentials, the 2FA enrollment flag, and the administrative flag
// consulted by the access guard.
package user

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is one account record.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	TwoFactorSecret  string    `json:"-"`
	IsAdmin          bool      `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Store defines the interface for user persistence.
type Store interface {
	// GetByID retrieves a user. Returns nil, nil if not found.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email. Returns nil, nil if not found.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create persists a new user and assigns its ID.
	Create(ctx context.Context, u *User) error
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
