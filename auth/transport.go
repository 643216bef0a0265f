package auth

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "auth-token"

// SessionTransport carries the session token between client and
// server. Two strategies exist: the pure server-set cookie, and the
// mirrored variant where the client also holds the raw token and may
// replay it as a bearer header. Selected at composition time.
type SessionTransport interface {
	// Establish binds the token to the client for maxAge.
	Establish(w http.ResponseWriter, r *http.Request, token string, maxAge time.Duration)
	// Clear removes the session binding. Idempotent: clearing an
	// absent session is not an error.
	Clear(w http.ResponseWriter, r *http.Request)
	// Extract reads the current token from an inbound request.
	Extract(r *http.Request) (string, bool)
	// EchoToken reports whether login responses should include the
	// raw token for client-side persistence.
	EchoToken() bool
}

// CookieTransport is the cookie-only session transport. The cookie is
// http-only, SameSite=Lax, path /, with Max-Age equal to the session
// lifetime. The Secure attribute is set in production and whenever the
// request itself arrived over TLS.
type CookieTransport struct {
	// Production forces the Secure attribute regardless of how the
	// current request arrived.
	Production bool
}

var _ SessionTransport = CookieTransport{}

func (t CookieTransport) Establish(w http.ResponseWriter, r *http.Request, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   t.Production || RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
	})
}

func (t CookieTransport) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   t.Production || RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (t CookieTransport) Extract(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (t CookieTransport) EchoToken() bool { return false }

// MirroredTransport extends the cookie transport with a client-held
// copy of the token: login responses echo the raw token, and requests
// may present it as an Authorization bearer header instead of the
// cookie (the cookie still wins when both are present).
type MirroredTransport struct {
	CookieTransport
}

var _ SessionTransport = MirroredTransport{}

func (t MirroredTransport) Extract(r *http.Request) (string, bool) {
	if token, ok := t.CookieTransport.Extract(r); ok {
		return token, true
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token, true
	}
	return "", false
}

func (t MirroredTransport) EchoToken() bool { return true }

// RequestIsSecure reports whether the request arrived over TLS,
// directly or via a terminating proxy.
func RequestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
