package twofactor

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradevault/identity/pkg/apperr"
	"github.com/tradevault/identity/pkg/realtime"
	"github.com/tradevault/identity/pkg/session"
	"github.com/tradevault/identity/pkg/token"
	"github.com/tradevault/identity/pkg/user"
)

const socketURL = "wss://stream.example.com/ws"

type fixture struct {
	promotion *Promotion
	codec     *token.Codec
	sessions  *session.MemoryStore
	users     *user.MemoryStore
	userID    int64
}

func newFixture(t *testing.T, verifier CodeVerifier) *fixture {
	t.Helper()

	codec, err := token.NewCodec(token.Config{Secret: []byte("test-secret")})
	require.NoError(t, err)

	users := user.NewMemoryStore()
	u := &user.User{Email: "trader@example.com", TwoFactorEnabled: true}
	require.NoError(t, users.Create(context.Background(), u))

	sessions := session.NewMemoryStore()
	bridge := realtime.NewBridge(socketURL)

	return &fixture{
		promotion: NewPromotion(verifier, codec, sessions, users, bridge),
		codec:     codec,
		sessions:  sessions,
		users:     users,
		userID:    u.ID,
	}
}

func acceptAll(_ context.Context, _ int64, _ string) (bool, error) { return true, nil }

func rejectAll(_ context.Context, _ int64, _ string) (bool, error) { return false, nil }

func TestPromote_Success(t *testing.T) {
	f := newFixture(t, VerifierFunc(acceptAll))
	ctx := context.Background()

	result, err := f.promotion.Promote(ctx, f.userID, "123456", "10.0.0.1", "cli/1.0")
	require.NoError(t, err)

	assert.Equal(t, socketURL, result.WebsocketURL)
	assert.Equal(t, f.userID, result.User.ID)

	// Exactly one new active session, matching the request metadata.
	listed, err := f.sessions.List(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, result.Session.ID, listed[0].ID)
	assert.Equal(t, "10.0.0.1", listed[0].IP)
	assert.Equal(t, "cli/1.0", listed[0].DeviceInfo)

	// The credential is full tier and bound to the new session.
	p, err := f.codec.Verify(result.Credential)
	require.NoError(t, err)
	assert.Equal(t, token.TierFull, p.Tier)
	assert.Equal(t, result.Session.ID, p.SessionID)
	assert.True(t, p.TwoFactorEnabled)
}

func TestPromote_WrongCode(t *testing.T) {
	f := newFixture(t, VerifierFunc(rejectAll))
	ctx := context.Background()

	result, err := f.promotion.Promote(ctx, f.userID, "000000", "10.0.0.1", "cli/1.0")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// A failed attempt must not create a session.
	listed, err := f.sessions.List(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestPromote_UnknownUser(t *testing.T) {
	f := newFixture(t, VerifierFunc(acceptAll))

	_, err := f.promotion.Promote(context.Background(), 9999, "123456", "10.0.0.1", "cli/1.0")
	require.Error(t, err)

	// Same error as a wrong code, so the endpoint does not leak which
	// accounts exist.
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "invalid verification code")
}

func TestTOTPVerifier(t *testing.T) {
	users := user.NewMemoryStore()
	ctx := context.Background()

	secret := "JBSWY3DPEHPK3PXP"
	enrolled := &user.User{Email: "enrolled@example.com", TwoFactorEnabled: true, TwoFactorSecret: secret}
	require.NoError(t, users.Create(ctx, enrolled))
	bare := &user.User{Email: "bare@example.com"}
	require.NoError(t, users.Create(ctx, bare))

	verifier := NewTOTPVerifier(users)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	ok, err := verifier.Verify(ctx, enrolled.ID, code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifier.Verify(ctx, enrolled.ID, "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	// No enrolled secret never verifies.
	ok, err = verifier.Verify(ctx, bare.ID, code)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown user never verifies.
	ok, err = verifier.Verify(ctx, 9999, code)
	require.NoError(t, err)
	assert.False(t, ok)
}
