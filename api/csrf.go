package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lumenjournal/lumen/auth"
)

const (
	csrfCookieName = "lumen_csrf"
	csrfHeaderName = "X-CSRF-Token"
)

// csrfExempt lists mutating endpoints the check must not cover. Login
// runs before the CSRF cookie can exist, verify-token is a read dressed
// as a POST, and logout must stay reachable with nothing but the
// session cookie: it only destroys state, and a forged logout costs the
// victim a re-login, not data.
var csrfExempt = map[string]bool{
	"/api/auth/login":        true,
	"/api/auth/logout":       true,
	"/api/auth/verify-token": true,
}

// CSRFMiddleware enforces double-submit cookie protection on mutating
// requests that carry the session cookie. Requests without the cookie
// (bearer-authenticated or anonymous) are immune: a cross-origin page
// cannot attach custom headers, and without the cookie there is no
// ambient credential to ride.
func (a *API) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if csrfExempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := r.Cookie(auth.CookieName); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusForbidden, CodeUnauthorized, "missing CSRF token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(r.Header.Get(csrfHeaderName))) != 1 {
			writeError(w, http.StatusForbidden, CodeUnauthorized, "invalid CSRF token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeCSRFCookie issues the double-submit cookie alongside a new
// session. Deliberately not HttpOnly: the browser app reads it back and
// echoes it in the X-CSRF-Token header on every mutating call.
func writeCSRFCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: false,
		Secure:   auth.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCSRFCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: false,
		Secure:   auth.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
