package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tradevault/identity/pkg/audit"
	"github.com/tradevault/identity/pkg/session"
	"github.com/tradevault/identity/pkg/token"
	"github.com/tradevault/identity/pkg/user"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userSummary struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

func summarize(u *user.User) userSummary {
	return userSummary{ID: u.ID, Email: u.Email, TwoFactorEnabled: u.TwoFactorEnabled}
}

type loginResponse struct {
	Success           bool         `json:"success"`
	RequiresTwoFactor bool         `json:"requiresTwoFactor,omitempty"`
	UserID            int64        `json:"userId,omitempty"`
	User              *userSummary `json:"user,omitempty"`
}

// login verifies the primary factor. Users with 2FA enrolled receive no
// credential yet, only the instruction to continue with /auth/verify-2fa.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !h.allow(w, r, "login:"+ip, h.cfg.LoginLimit, h.cfg.LoginWindow) {
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if u == nil || !user.CheckPassword(req.Password, u.PasswordHash) {
		userID := int64(0)
		if u != nil {
			userID = u.ID
		}
		audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventLogin, userID).
			WithOutcome(false).
			WithRequest(ip, deviceInfo(r)).
			WithDetails(map[string]any{"reason": "invalid credentials"}))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if u.TwoFactorEnabled {
		writeJSON(w, http.StatusOK, loginResponse{
			Success:           true,
			RequiresTwoFactor: true,
			UserID:            u.ID,
		})
		return
	}

	sess := session.New(u.ID, ip, deviceInfo(r), h.codec.Lifetime())
	if err := h.sessions.Create(r.Context(), sess); err != nil {
		writeAppError(w, err)
		return
	}

	credential, err := h.codec.Issue(token.Principal{
		UserID:    u.ID,
		Tier:      token.TierFull,
		SessionID: sess.ID,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventLogin, u.ID).
		WithOutcome(true).
		WithRequest(ip, deviceInfo(r)))

	h.jar.Attach(w, credential)
	s := summarize(u)
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: &s})
}

// logout clears the cookie and drops the credential's session. An absent or
// invalid credential is not an error; the cookie is cleared regardless.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolver.Resolve(r.Context(), r)
	if err == nil && p != nil {
		if _, err := h.sessions.Delete(r.Context(), p.UserID, p.SessionID); err != nil {
			writeAppError(w, err)
			return
		}
		audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventLogout, p.UserID).
			WithOutcome(true).
			WithRequest(clientIP(r), deviceInfo(r)))
	}

	h.jar.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// logoutAll revokes every one of the caller's sessions.
func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	count, err := h.sessions.DeleteAll(r.Context(), p.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventLogoutAll, p.UserID).
		WithOutcome(true).
		WithRequest(clientIP(r), deviceInfo(r)).
		WithDetails(map[string]any{"revoked": count}))

	h.jar.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "revoked": count})
}

type sessionTokenResponse struct {
	Success      bool            `json:"success"`
	SessionToken string          `json:"sessionToken"`
	UserID       int64           `json:"userId"`
	UserTier     token.TrustTier `json:"userTier"`
}

// sessionToken returns the raw credential for clients that need it outside
// the cookie, e.g. to pass as a bearer token.
func (h *Handler) sessionToken(w http.ResponseWriter, r *http.Request) {
	p, err := h.guard.RequireSession(r.Context(), r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionTokenResponse{
		Success:      true,
		SessionToken: h.rawCredential(r),
		UserID:       p.UserID,
		UserTier:     p.Tier,
	})
}

type verifyTwoFactorRequest struct {
	UserID int64  `json:"userId" validate:"required"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

type verifyTwoFactorResponse struct {
	Success      bool                   `json:"success"`
	WebsocketURL string                 `json:"websocket_url"`
	User         userSummary            `json:"user"`
	Session      *session.ActiveSession `json:"session"`
}

// verifyTwoFactor promotes a pre-authenticated user to a full-trust session.
func (h *Handler) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !h.allow(w, r, "2fa:"+ip, h.cfg.TwoFactorLimit, h.cfg.TwoFactorWindow) {
		return
	}

	var req verifyTwoFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.promotion.Promote(r.Context(), req.UserID, req.Code, ip, deviceInfo(r))
	if err != nil {
		audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventTwoFactorVerify, req.UserID).
			WithOutcome(false).
			WithRequest(ip, deviceInfo(r)))
		writeAppError(w, err)
		return
	}

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventTwoFactorVerify, req.UserID).
		WithOutcome(true).
		WithRequest(ip, deviceInfo(r)))

	h.jar.Attach(w, result.Credential)
	writeJSON(w, http.StatusOK, verifyTwoFactorResponse{
		Success:      true,
		WebsocketURL: result.WebsocketURL,
		User:         summarize(result.User),
		Session:      result.Session,
	})
}

// allow applies the fixed-window budget for a brute-force-prone endpoint.
// On rejection it writes the 429 response and audits the event.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, key string, limit int, window time.Duration) bool {
	res := h.limiter.Check(key, limit, window)
	if res.Allowed {
		return true
	}

	audit.Record(r.Context(), h.audit, audit.NewEvent(audit.EventRateLimited, 0).
		WithRequest(clientIP(r), deviceInfo(r)).
		WithDetails(map[string]any{"key": key}))

	w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

// rawCredential extracts the unverified credential string from the request.
func (h *Handler) rawCredential(r *http.Request) string {
	if raw := h.jar.Read(r); raw != "" {
		return raw
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
