// Package audit provides append-only logging of security-relevant events
// for forensic review. Entries are never mutated or deleted by this
// subsystem; retention cleanup is the only writer besides insert.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// EventType categorizes security events.
type EventType string

const (
	// EventLogin is a primary-factor login attempt.
	EventLogin EventType = "login"

	// EventLogout is an explicit logout.
	EventLogout EventType = "logout"

	// EventLogoutAll is a logout-everywhere request.
	EventLogoutAll EventType = "logout_all"

	// EventTwoFactorVerify is a second-factor verification attempt.
	EventTwoFactorVerify EventType = "two_factor_verify"

	// EventSessionRevoked is a targeted session revocation.
	EventSessionRevoked EventType = "session_revoked"

	// EventAuthKeyGenerated is an auth-key rotation.
	EventAuthKeyGenerated EventType = "auth_key_generated"

	// EventAuthKeyRevoked is an auth-key revocation.
	EventAuthKeyRevoked EventType = "auth_key_revoked"

	// EventRealtimeHandshake is a real-time transport identity hand-off.
	EventRealtimeHandshake EventType = "realtime_handshake"

	// EventRateLimited is a request rejected by the rate limiter.
	EventRateLimited EventType = "rate_limited"
)

// Event is one security log entry.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	UserID     int64          `json:"user_id"`
	Type       EventType      `json:"event_type"`
	Success    bool           `json:"success"`
	IP         string         `json:"ip"`
	DeviceInfo string         `json:"device_info,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Logger defines the interface for security audit logging.
type Logger interface {
	// Record persists an event.
	Record(ctx context.Context, event Event) error

	// Query retrieves events matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// QueryFilter defines criteria for querying events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	UserID    int64
	Type      EventType
	Success   *bool
	Limit     int
	Offset    int
}

// Config configures audit logging.
type Config struct {
	Enabled       bool
	RetentionDays int
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(eventType EventType, userID int64) *Event {
	return &Event{
		ID:        generateEventID(),
		Timestamp: time.Now(),
		UserID:    userID,
		Type:      eventType,
	}
}

// WithOutcome sets the success flag.
func (e *Event) WithOutcome(success bool) *Event {
	e.Success = success
	return e
}

// WithRequest sets the caller's IP and device descriptor.
func (e *Event) WithRequest(ip, deviceInfo string) *Event {
	e.IP = ip
	e.DeviceInfo = deviceInfo
	return e
}

// WithDetails attaches structured detail.
func (e *Event) WithDetails(details map[string]any) *Event {
	e.Details = details
	return e
}

// Record persists the event without letting a logging failure mask the
// triggering operation's outcome: errors are reported as internal
// diagnostics only.
func Record(ctx context.Context, l Logger, event *Event) {
	if l == nil || event == nil {
		return
	}
	if err := l.Record(ctx, *event); err != nil {
		slog.Error("audit: recording event failed",
			"error", err,
			"event_type", event.Type,
			"user_id", event.UserID,
		)
	}
}

// Nop is a Logger that discards everything. Used when auditing is disabled.
type Nop struct{}

// Record discards the event.
func (Nop) Record(context.Context, Event) error { return nil }

// Query returns no events.
func (Nop) Query(context.Context, QueryFilter) ([]Event, error) { return nil, nil }

// Close is a no-op.
func (Nop) Close() error { return nil }

// Verify interface compliance.
var _ Logger = Nop{}
