// Package postgres provides PostgreSQL storage for user records.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tradevault/identity/pkg/user"
)

// Store implements user.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL user store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, email, password_hash, two_factor_enabled, two_factor_secret, is_admin, created_at`

// GetByID retrieves a user. Returns nil, nil if not found.
func (s *Store) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email. Returns nil, nil if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// Create persists a new user and assigns its ID.
func (s *Store) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (email, password_hash, two_factor_enabled, two_factor_secret, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.TwoFactorEnabled, u.TwoFactorSecret, u.IsAdmin,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash,
		&u.TwoFactorEnabled, &u.TwoFactorSecret, &u.IsAdmin, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// Verify interface compliance.
var _ user.Store = (*Store)(nil)
