// Package httpapi provides the REST API surface of the identity service.
// Every response uses a {success: bool} envelope; failures carry only a
// client-safe message in the error field.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tradevault/identity/pkg/apperr"
	"github.com/tradevault/identity/pkg/audit"
	"github.com/tradevault/identity/pkg/authkey"
	"github.com/tradevault/identity/pkg/authn"
	"github.com/tradevault/identity/pkg/ratelimit"
	"github.com/tradevault/identity/pkg/realtime"
	"github.com/tradevault/identity/pkg/session"
	"github.com/tradevault/identity/pkg/token"
	"github.com/tradevault/identity/pkg/twofactor"
	"github.com/tradevault/identity/pkg/user"
)

// Config holds the handler's rate-limit budgets.
type Config struct {
	LoginLimit      int
	LoginWindow     time.Duration
	TwoFactorLimit  int
	TwoFactorWindow time.Duration
}

// Deps collects the handler's collaborators.
type Deps struct {
	Codec     *token.Codec
	Jar       *token.CookieJar
	Resolver  *authn.Resolver
	Guard     *authn.Guard
	Users     user.Store
	Sessions  session.Store
	Keys      *authkey.Service
	Promotion *twofactor.Promotion
	Bridge    *realtime.Bridge
	Limiter   *ratelimit.Limiter
	Audit     audit.Logger
}

// Handler provides the identity REST API endpoints.
type Handler struct {
	mux *http.ServeMux
	cfg Config

	codec     *token.Codec
	jar       *token.CookieJar
	resolver  *authn.Resolver
	guard     *authn.Guard
	users     user.Store
	sessions  session.Store
	keys      *authkey.Service
	promotion *twofactor.Promotion
	bridge    *realtime.Bridge
	limiter   *ratelimit.Limiter
	audit     audit.Logger
}

// NewHandler creates the API handler and registers its routes.
func NewHandler(deps Deps, cfg Config) *Handler {
	h := &Handler{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		codec:     deps.Codec,
		jar:       deps.Jar,
		resolver:  deps.Resolver,
		guard:     deps.Guard,
		users:     deps.Users,
		sessions:  deps.Sessions,
		keys:      deps.Keys,
		promotion: deps.Promotion,
		bridge:    deps.Bridge,
		limiter:   deps.Limiter,
		audit:     deps.Audit,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all API routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("POST /auth/login", h.login)
	h.mux.HandleFunc("POST /auth/logout", h.logout)
	h.mux.HandleFunc("POST /auth/logout-all", h.logoutAll)
	h.mux.HandleFunc("GET /auth/session-token", h.sessionToken)
	h.mux.HandleFunc("POST /auth/verify-2fa", h.verifyTwoFactor)
	h.mux.HandleFunc("GET /auth/sessions", h.listSessions)
	h.mux.HandleFunc("DELETE /auth/sessions/{sessionId}", h.deleteSession)
	h.mux.HandleFunc("POST /wallets/authenticate-wss", h.authenticateWSS)
	h.mux.HandleFunc("GET /auth/keys/status", h.keyStatus)
	h.mux.HandleFunc("POST /auth/keys/generate", h.keyGenerate)
	h.mux.HandleFunc("POST /auth/keys/revoke", h.keyRevoke)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response in the standard envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// writeAppError maps a service error onto an HTTP response. Unexpected
// failures are logged and reduced to a generic message.
func writeAppError(w http.ResponseWriter, err error) {
	e := apperr.FromError(err)
	if e.Kind == apperr.KindInternal {
		slog.Error("httpapi: internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeError(w, e.Status(), e.Message)
}
