package httpapi

import (
	"net/http"

	"github.com/tradevault/identity/pkg/audit"
	"github.com/tradevault/identity/pkg/token"
)

type wssAuthResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"sessionId"`
	AccountID int64           `json:"accountId"`
	UserTier  token.TrustTier `json:"userTier"`
}

// authenticateWSS republishes the caller's verified identity for the
// realtime transport's handshake. No new credential is minted.
func (h *Handler) authenticateWSS(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	a := h.bridge.Assert(p)

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventRealtimeHandshake, p.UserID).
		WithOutcome(true).
		WithRequest(clientIP(r), deviceInfo(r)).
		WithDetails(map[string]any{"session_id": a.SessionID}))

	writeJSON(w, http.StatusOK, wssAuthResponse{
		Success:   true,
		SessionID: a.SessionID,
		AccountID: a.PrincipalID,
		UserTier:  a.TrustTier,
	})
}
