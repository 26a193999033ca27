package token

import (
	"net/http"
	"time"
)

// DefaultCookieName is the session cookie name.
const DefaultCookieName = "tv_session"

// CookieJar attaches, reads, and clears the session credential cookie.
// The cookie is HTTP-only, SameSite=Lax, scoped to the whole origin, and
// Secure outside development deployments.
type CookieJar struct {
	name     string
	lifetime time.Duration
	secure   bool
}

// NewCookieJar creates a cookie jar. An empty name falls back to
// DefaultCookieName; lifetime should match the credential lifetime.
func NewCookieJar(name string, lifetime time.Duration, secure bool) *CookieJar {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieJar{name: name, lifetime: lifetime, secure: secure}
}

// Name returns the cookie name.
func (j *CookieJar) Name() string {
	return j.name
}

// Attach sets the credential cookie on the response.
func (j *CookieJar) Attach(w http.ResponseWriter, credential string) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.name,
		Value:    credential,
		Path:     "/",
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(j.lifetime.Seconds()),
	})
}

// Clear expires the credential cookie immediately. Used on logout.
func (j *CookieJar) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// Read returns the raw credential from the request cookie, or "" if the
// cookie is absent.
func (j *CookieJar) Read(r *http.Request) string {
	c, err := r.Cookie(j.name)
	if err != nil {
		return ""
	}
	return c.Value
}
