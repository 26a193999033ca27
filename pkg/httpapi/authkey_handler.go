package httpapi

import (
	"net/http"
	"time"

	"github.com/tradevault/identity/pkg/audit"
)

type keyStatusResponse struct {
	Success   bool       `json:"success"`
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// keyStatus reports whether the caller holds an active auth key.
func (h *Handler) keyStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	status, err := h.keys.Status(r.Context(), p.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, keyStatusResponse{
		Success:   true,
		Active:    status.Active,
		CreatedAt: status.CreatedAt,
		ExpiresAt: status.ExpiresAt,
	})
}

type keyGenerateResponse struct {
	Success   bool      `json:"success"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// keyGenerate rotates the caller's auth key. The key value appears in this
// response only; it is never readable again.
func (h *Handler) keyGenerate(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	key, err := h.keys.Generate(r.Context(), p.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventAuthKeyGenerated, p.UserID).
		WithOutcome(true).
		WithRequest(clientIP(r), deviceInfo(r)))

	writeJSON(w, http.StatusOK, keyGenerateResponse{
		Success:   true,
		Key:       key.Value,
		CreatedAt: key.CreatedAt,
		ExpiresAt: key.ExpiresAt,
	})
}

// keyRevoke revokes the caller's auth keys.
func (h *Handler) keyRevoke(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	count, err := h.keys.Revoke(r.Context(), p.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventAuthKeyRevoked, p.UserID).
		WithOutcome(true).
		WithRequest(clientIP(r), deviceInfo(r)).
		WithDetails(map[string]any{"revoked": count}))

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "revoked": count})
}
