// Package postgres provides PostgreSQL storage for the active-session
// registry.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradevault/identity/pkg/session"
)

// Store implements session.Store using PostgreSQL.
type Store struct {
	db     *sql.DB
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new PostgreSQL session store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create registers a new session.
func (s *Store) Create(ctx context.Context, sess *session.ActiveSession) error {
	query := `
		INSERT INTO active_sessions (id, user_id, ip, device_info, created_at, last_activity, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.IP, sess.DeviceInfo,
		sess.CreatedAt, sess.LastActivity, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting active session: %w", err)
	}
	return nil
}

// Get retrieves one of the user's sessions by id. Returns nil, nil if absent
// or expired.
func (s *Store) Get(ctx context.Context, userID int64, id string) (*session.ActiveSession, error) {
	query := `
		SELECT id, user_id, ip, device_info, created_at, last_activity, expires_at
		FROM active_sessions
		WHERE id = $1 AND user_id = $2 AND expires_at > NOW()
	`
	row := s.db.QueryRowContext(ctx, query, id, userID)

	var sess session.ActiveSession
	err := row.Scan(&sess.ID, &sess.UserID, &sess.IP, &sess.DeviceInfo,
		&sess.CreatedAt, &sess.LastActivity, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning active session: %w", err)
	}
	return &sess, nil
}

// List returns the user's non-expired sessions, newest first.
func (s *Store) List(ctx context.Context, userID int64) ([]*session.ActiveSession, error) {
	query := `
		SELECT id, user_id, ip, device_info, created_at, last_activity, expires_at
		FROM active_sessions
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*session.ActiveSession
	for rows.Next() {
		var sess session.ActiveSession
		err := rows.Scan(&sess.ID, &sess.UserID, &sess.IP, &sess.DeviceInfo,
			&sess.CreatedAt, &sess.LastActivity, &sess.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("scanning active session row: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating active session rows: %w", err)
	}
	return sessions, nil
}

// Touch updates LastActivity.
func (s *Store) Touch(ctx context.Context, userID int64, id string) error {
	query := `
		UPDATE active_sessions
		SET last_activity = NOW()
		WHERE id = $1 AND user_id = $2 AND expires_at > NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("touching active session: %w", err)
	}
	return nil
}

// Delete revokes one session, scoped to the owning user. Reports whether a
// row was removed.
func (s *Store) Delete(ctx context.Context, userID int64, id string) (bool, error) {
	query := `DELETE FROM active_sessions WHERE id = $1 AND user_id = $2`
	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting active session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteAll revokes every session of the user and returns the count.
func (s *Store) DeleteAll(ctx context.Context, userID int64) (int, error) {
	query := `DELETE FROM active_sessions WHERE user_id = $1`
	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting active sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(affected), nil
}

// Cleanup removes expired sessions.
func (s *Store) Cleanup(ctx context.Context) error {
	query := `DELETE FROM active_sessions WHERE expires_at <= NOW()`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("cleaning up active sessions: %w", err)
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically removes
// expired sessions. The goroutine is stopped when Close is called.
func (s *Store) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Cleanup(ctx); err != nil {
					slog.Warn("session cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
