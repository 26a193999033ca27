// Package token signs and verifies the stateless session credential.
// The credential is an HMAC-signed JWT carrying the principal's identity,
// trust tier, 2FA flag, and the active-session id it is bound to. Validation
// here is purely cryptographic; the session registry decides whether the
// referenced session is still allowed to exist.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TrustTier is the level of authentication a credential attests to.
type TrustTier string

const (
	// TierPrimary means only the primary factor (password) was verified.
	TierPrimary TrustTier = "primary"

	// TierFull means the second factor was verified as well.
	TierFull TrustTier = "full"
)

// ErrInvalidCredential is returned for any structural, cryptographic, or
// expiry failure. Callers never learn which check failed.
var ErrInvalidCredential = errors.New("invalid credential")

// Principal is the identity a verified credential resolves to.
type Principal struct {
	UserID           int64
	Tier             TrustTier
	TwoFactorEnabled bool
	SessionID        string
}

// Claims is the JWT claim set for a session credential.
type Claims struct {
	jwt.RegisteredClaims
	Tier             string `json:"tier"`
	TwoFactorEnabled bool   `json:"tfa"`
	SessionID        string `json:"sid"`
}

// Codec signs and verifies session credentials with a server-held secret.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
}

// Config configures the codec.
type Config struct {
	// Secret is the HMAC signing key.
	Secret []byte

	// LifetimeDays is the credential expiry horizon in days.
	LifetimeDays int

	// Issuer is the iss claim value.
	Issuer string
}

const defaultLifetimeDays = 7

// NewCodec creates a codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token signing secret is required")
	}
	if cfg.LifetimeDays <= 0 {
		cfg.LifetimeDays = defaultLifetimeDays
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "identity"
	}
	return &Codec{
		secret:   cfg.Secret,
		lifetime: time.Duration(cfg.LifetimeDays) * 24 * time.Hour,
		issuer:   cfg.Issuer,
	}, nil
}

// Lifetime returns the configured credential lifetime.
func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue signs a credential for the principal with the configured expiry.
func (c *Codec) Issue(p Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
		Tier:             string(p.Tier),
		TwoFactorEnabled: p.TwoFactorEnabled,
		SessionID:        p.SessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing credential: %w", err)
	}
	return signed, nil
}

// Verify checks the credential's signature and expiry and returns the
// principal it attests to. Every failure mode collapses to
// ErrInvalidCredential.
func (c *Codec) Verify(raw string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidCredential
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", ErrInvalidCredential)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidCredential)
	}

	tier := TrustTier(claims.Tier)
	if tier != TierPrimary && tier != TierFull {
		return nil, fmt.Errorf("%w: unknown trust tier", ErrInvalidCredential)
	}

	return &Principal{
		UserID:           userID,
		Tier:             tier,
		TwoFactorEnabled: claims.TwoFactorEnabled,
		SessionID:        claims.SessionID,
	}, nil
}
