// Package postgres provides PostgreSQL storage for auth keys.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tradevault/identity/pkg/authkey"
)

// Store implements authkey.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL auth-key store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetActive returns the user's non-revoked, non-expired key.
func (s *Store) GetActive(ctx context.Context, userID int64) (*authkey.Key, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, revoked
		FROM auth_keys
		WHERE user_id = $1 AND NOT revoked AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query, userID)

	var key authkey.Key
	err := row.Scan(&key.ID, &key.UserID, &key.CreatedAt, &key.ExpiresAt, &key.Revoked)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning auth key: %w", err)
	}
	return &key, nil
}

// Rotate revokes all of the user's existing keys and inserts the new one
// inside a single transaction, so a concurrent rotation can never observe
// zero or multiple active keys.
func (s *Store) Rotate(ctx context.Context, key *authkey.Key) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	revoke := `UPDATE auth_keys SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`
	if _, err := tx.ExecContext(ctx, revoke, key.UserID); err != nil {
		return fmt.Errorf("revoking prior keys: %w", err)
	}

	insert := `
		INSERT INTO auth_keys (user_id, key_value, created_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insert,
		key.UserID, key.Value, key.CreatedAt, key.ExpiresAt,
	).Scan(&key.ID)
	if err != nil {
		return fmt.Errorf("inserting auth key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rotation: %w", err)
	}
	return nil
}

// RevokeAll revokes the user's live keys and returns the count.
func (s *Store) RevokeAll(ctx context.Context, userID int64) (int, error) {
	query := `UPDATE auth_keys SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`
	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("revoking auth keys: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(affected), nil
}

// Verify interface compliance.
var _ authkey.Store = (*Store)(nil)
