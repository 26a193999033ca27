package httpapi

import (
	"net/http"

	"github.com/tradevault/identity/pkg/audit"
	"github.com/tradevault/identity/pkg/session"
)

type sessionListResponse struct {
	Success  bool                     `json:"success"`
	Sessions []*session.ActiveSession `json:"sessions"`
}

// listSessions returns the caller's own active sessions, newest first.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	sessions, err := h.sessions.List(r.Context(), p.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*session.ActiveSession{}
	}

	writeJSON(w, http.StatusOK, sessionListResponse{Success: true, Sessions: sessions})
}

// deleteSession revokes one of the caller's sessions. Deletion is scoped to
// the owner; a session id belonging to another user reads as absent.
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	id := r.PathValue("sessionId")
	removed, err := h.sessions.Delete(r.Context(), p.UserID, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventSessionRevoked, p.UserID).
		WithOutcome(true).
		WithRequest(clientIP(r), deviceInfo(r)).
		WithDetails(map[string]any{"session_id": id}))

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "revoked": id})
}
