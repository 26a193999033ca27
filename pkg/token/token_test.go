package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(Config{Secret: testSecret, LifetimeDays: 7, Issuer: "identity-test"})
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec(Config{})
	assert.Error(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	p := Principal{
		UserID:           42,
		Tier:             TierFull,
		TwoFactorEnabled: true,
		SessionID:        "sess-1",
	}

	raw, err := codec.Issue(p)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, p, *got)
}

func TestVerify_WrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec(Config{Secret: []byte("another-secret-another-secret!!!"), Issuer: "identity-test"})
	require.NoError(t, err)

	raw, err := other.Issue(Principal{UserID: 1, Tier: TierPrimary, SessionID: "s"})
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_Garbage(t *testing.T) {
	codec := newTestCodec(t)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
}

func TestVerify_Expired(t *testing.T) {
	codec := newTestCodec(t)

	// Sign an already-expired credential with the same secret.
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "identity-test",
			IssuedAt:  jwt.NewNumericDate(now.Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
		Tier:      string(TierFull),
		SessionID: "sess-1",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_MissingSessionID(t *testing.T) {
	codec := newTestCodec(t)

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "identity-test",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Tier: string(TierPrimary),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_UnknownTier(t *testing.T) {
	codec := newTestCodec(t)

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "identity-test",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Tier:      "superuser",
		SessionID: "sess-1",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_WrongIssuer(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec(Config{Secret: testSecret, Issuer: "someone-else"})
	require.NoError(t, err)

	raw, err := other.Issue(Principal{UserID: 7, Tier: TierPrimary, SessionID: "s"})
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLifetime_Default(t *testing.T) {
	codec, err := NewCodec(Config{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, codec.Lifetime())
}
