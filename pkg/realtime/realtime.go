// Package realtime bridges the HTTP session to the realtime transport. The
// transport runs its own handshake; this package only republishes the
// already-validated identity fields so the transport can bind the connection
// to the same principal. It never mints a new credential.
package realtime

import (
	"github.com/tradevault/identity/pkg/token"
)

// Assertion is the minimal identity projection handed to the realtime
// transport. AccountID mirrors the principal id under the name the wallet
// channel expects.
type Assertion struct {
	SessionID   string          `json:"sessionId"`
	PrincipalID int64           `json:"accountId"`
	TrustTier   token.TrustTier `json:"userTier"`
}

// Bridge derives transport coordinates from configuration.
type Bridge struct {
	socketURL string
}

// NewBridge creates a bridge advertising the given websocket endpoint.
func NewBridge(socketURL string) *Bridge {
	return &Bridge{socketURL: socketURL}
}

// SocketURL returns the websocket endpoint clients should attach to.
func (b *Bridge) SocketURL() string {
	return b.socketURL
}

// Assert projects a verified principal into a transport assertion. The
// principal must come from the access guard; no further validation happens
// here.
func (b *Bridge) Assert(p *token.Principal) *Assertion {
	return &Assertion{
		SessionID:   p.SessionID,
		PrincipalID: p.UserID,
		TrustTier:   p.Tier,
	}
}
