package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradevault/identity/pkg/audit"
)

func newTestEvent() audit.Event {
	return audit.Event{
		ID:         "evt-1",
		Timestamp:  time.Now().UTC(),
		UserID:     42,
		Type:       audit.EventLogin,
		Success:    true,
		IP:         "10.0.0.1",
		DeviceInfo: "Mozilla/5.0",
		Details:    map[string]any{"session_id": "sess-1"},
	}
}

func TestNew_DefaultRetention(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	assert.Equal(t, defaultRetentionDays, store.retentionDays)
}

func TestRecord_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{RetentionDays: 30})
	event := newTestEvent()

	mock.ExpectExec("INSERT INTO security_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Record(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})

	mock.ExpectExec("INSERT INTO security_events").
		WillReturnError(errors.New("connection refused"))

	err = store.Record(context.Background(), newTestEvent())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "inserting security event")
}

func TestQuery_Filters(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	event := newTestEvent()

	rows := sqlmock.NewRows(eventColumns).AddRow(
		event.ID, event.Timestamp, event.UserID, string(event.Type),
		event.Success, event.IP, event.DeviceInfo, []byte(`{"session_id":"sess-1"}`),
	)
	mock.ExpectQuery("SELECT .+ FROM security_events WHERE user_id = .+ AND event_type = .+ ORDER BY timestamp DESC LIMIT 10").
		WithArgs(int64(42), string(audit.EventLogin)).
		WillReturnRows(rows)

	got, err := store.Query(context.Background(), audit.QueryFilter{
		UserID: 42,
		Type:   audit.EventLogin,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt-1", got[0].ID)
	assert.Equal(t, audit.EventLogin, got[0].Type)
	assert.Equal(t, "sess-1", got[0].Details["session_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM security_events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	count, err := store.Count(context.Background(), audit.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{RetentionDays: 30})

	mock.ExpectExec("DELETE FROM security_events WHERE timestamp").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Cleanup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_WithoutCleanupRoutine(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	assert.NoError(t, store.Close())
}
