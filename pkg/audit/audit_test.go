package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventLogin, 42)

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, int64(42), e.UserID)
	assert.Equal(t, EventLogin, e.Type)
	assert.False(t, e.Success)
}

func TestEventBuilders(t *testing.T) {
	e := NewEvent(EventTwoFactorVerify, 7).
		WithOutcome(true).
		WithRequest("10.0.0.1", "Mozilla/5.0").
		WithDetails(map[string]any{"session_id": "abc"})

	assert.True(t, e.Success)
	assert.Equal(t, "10.0.0.1", e.IP)
	assert.Equal(t, "Mozilla/5.0", e.DeviceInfo)
	assert.Equal(t, "abc", e.Details["session_id"])
}

func TestEventID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateEventID()
		require.False(t, seen[id], "duplicate event id %q", id)
		seen[id] = true
	}
}

// failingLogger always errors on Record.
type failingLogger struct{ Nop }

func (failingLogger) Record(context.Context, Event) error {
	return errors.New("db down")
}

func TestRecord_SwallowsLoggerErrors(t *testing.T) {
	// Must not panic or propagate; failure reduces to a diagnostic log.
	Record(context.Background(), failingLogger{}, NewEvent(EventLogin, 1))
}

func TestRecord_NilSafe(t *testing.T) {
	Record(context.Background(), nil, NewEvent(EventLogin, 1))
	Record(context.Background(), Nop{}, nil)
}

func TestNop(t *testing.T) {
	var l Logger = Nop{}
	require.NoError(t, l.Record(context.Background(), Event{}))
	events, err := l.Query(context.Background(), QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, l.Close())
}
