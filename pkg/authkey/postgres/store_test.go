package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradevault/identity/pkg/authkey"
)

func TestGetActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_id", "created_at", "expires_at", "revoked"}).
		AddRow(int64(7), int64(42), now, now.Add(time.Hour), false)

	mock.ExpectQuery(`SELECT id, user_id, created_at, expires_at, revoked`).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	key, err := store.GetActive(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, int64(7), key.ID)
	assert.Equal(t, int64(42), key.UserID)
	assert.False(t, key.Revoked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActive_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)

	mock.ExpectQuery(`SELECT id, user_id, created_at, expires_at, revoked`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "created_at", "expires_at", "revoked"}))

	key, err := store.GetActive(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, key)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)
	now := time.Now()
	key := &authkey.Key{
		UserID:    42,
		Value:     "deadbeef",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE auth_keys SET revoked = TRUE`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO auth_keys`).
		WithArgs(int64(42), "deadbeef", now, now.Add(24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	err = store.Rotate(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(9), key.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate_InsertErrorRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)
	now := time.Now()
	key := &authkey.Key{UserID: 42, Value: "deadbeef", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE auth_keys SET revoked = TRUE`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO auth_keys`).
		WithArgs(int64(42), "deadbeef", now, now.Add(time.Hour)).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err = store.Rotate(context.Background(), key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting auth key")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)

	mock.ExpectExec(`UPDATE auth_keys SET revoked = TRUE`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := store.RevokeAll(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
