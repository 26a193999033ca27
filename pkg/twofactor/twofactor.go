// Package twofactor promotes a primary-factor session to full trust after a
// one-time code check. Promotion rotates the credential: the old primary-tier
// token is abandoned and a fresh full-tier token plus a new active-session
// record are issued.
package twofactor

import (
	"context"
	"fmt"

	"github.com/tradevault/identity/pkg/apperr"
	"github.com/tradevault/identity/pkg/realtime"
	"github.com/tradevault/identity/pkg/session"
	"github.com/tradevault/identity/pkg/token"
	"github.com/tradevault/identity/pkg/user"
)

// CodeVerifier checks a one-time code for a user. Implementations may call
// out to an external service; the promotion flow only cares about the
// boolean outcome.
type CodeVerifier interface {
	Verify(ctx context.Context, userID int64, code string) (bool, error)
}

// VerifierFunc adapts a function to the CodeVerifier interface.
type VerifierFunc func(ctx context.Context, userID int64, code string) (bool, error)

// Verify calls the wrapped function.
func (f VerifierFunc) Verify(ctx context.Context, userID int64, code string) (bool, error) {
	return f(ctx, userID, code)
}

// Result is a successful promotion: the new credential, the session record
// backing it, and the realtime endpoint the caller may now attach to.
type Result struct {
	Credential   string
	User         *user.User
	Session      *session.ActiveSession
	WebsocketURL string
}

// Promotion upgrades pre-authenticated users to fully trusted sessions.
type Promotion struct {
	verifier CodeVerifier
	codec    *token.Codec
	sessions session.Store
	users    user.Store
	bridge   *realtime.Bridge
}

// NewPromotion wires the promotion flow.
func NewPromotion(verifier CodeVerifier, codec *token.Codec, sessions session.Store, users user.Store, bridge *realtime.Bridge) *Promotion {
	return &Promotion{
		verifier: verifier,
		codec:    codec,
		sessions: sessions,
		users:    users,
		bridge:   bridge,
	}
}

// Promote verifies the one-time code and, on success, mints a full-tier
// credential backed by a new active session. A wrong code or an unknown user
// is reported as the same validation error so the endpoint cannot be used to
// probe which accounts exist.
func (p *Promotion) Promote(ctx context.Context, userID int64, code, ip, deviceInfo string) (*Result, error) {
	u, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up user %d: %w", userID, err)
	}
	if u == nil {
		return nil, apperr.Validation("invalid verification code")
	}

	ok, err := p.verifier.Verify(ctx, userID, code)
	if err != nil {
		return nil, fmt.Errorf("verifying code for user %d: %w", userID, err)
	}
	if !ok {
		return nil, apperr.Validation("invalid verification code")
	}

	sess := session.New(u.ID, ip, deviceInfo, p.codec.Lifetime())
	if err := p.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("registering promoted session: %w", err)
	}

	credential, err := p.codec.Issue(token.Principal{
		UserID:           u.ID,
		Tier:             token.TierFull,
		TwoFactorEnabled: u.TwoFactorEnabled,
		SessionID:        sess.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("issuing promoted credential: %w", err)
	}

	return &Result{
		Credential:   credential,
		User:         u,
		Session:      sess,
		WebsocketURL: p.bridge.SocketURL(),
	}, nil
}
