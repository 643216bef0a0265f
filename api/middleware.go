package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lumenjournal/lumen/auth"
)

// pathClass is the edge middleware's verdict on a request path.
type pathClass int

const (
	// classPublic paths are reachable without a session: the auth
	// endpoints themselves, health, and the API documentation.
	classPublic pathClass = iota
	// classStatic paths serve media and site assets; gating them
	// would break the login page itself.
	classStatic
	// classProtected paths require a valid session.
	classProtected
)

// Classification is by longest-prefix-free ordered scan: public wins
// over static, static over protected.
var (
	publicPrefixes = []string{
		"/api/auth/",
		"/api/health",
		"/api/v1/openapi.yaml",
		"/docs",
		"/redoc",
		"/favicon.ico",
		"/robots.txt",
		"/sitemap.xml",
	}
	staticPrefixes = []string{
		"/uploads/",
		"/assets/",
		"/icons/",
		"/images/",
	}
)

func classify(path string) pathClass {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return classPublic
		}
	}
	for _, p := range staticPrefixes {
		if strings.HasPrefix(path, p) {
			return classStatic
		}
	}
	return classProtected
}

// isAPIPath decides the error rendering: JSON for the API surface,
// HTML for navigational paths.
func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

const configErrorPage = `<!doctype html>
<html>
<head><title>Configuration error</title></head>
<body>
<h1>Server not configured</h1>
<p>No access password is set. Set ACCESS_PASSWORD and restart the server.</p>
</body>
</html>
`

// EdgeMiddleware classifies every request and gates the protected
// ones. Navigational requests always reach the page shell, which
// renders its own login state; API requests get JSON errors. An
// unconfigured server refuses protected paths entirely.
func (a *API) EdgeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch classify(r.URL.Path) {
		case classPublic, classStatic:
			next.ServeHTTP(w, r)
			return
		}

		authed, err := a.safeAuthenticated(r)
		switch {
		case errors.Is(err, auth.ErrNotConfigured):
			a.audit.log(auditConfigError, r)
			if isAPIPath(r.URL.Path) {
				writeError(w, http.StatusInternalServerError, CodeConfigurationError, "access password not configured")
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, configErrorPage)
			return

		case err != nil:
			// An evaluation failure must not take down navigation;
			// the page shell degrades to its unauthenticated state.
			a.audit.log(auditGateError, r)
			if isAPIPath(r.URL.Path) {
				writeError(w, http.StatusInternalServerError, CodeServerError, "internal server error")
				return
			}
			next.ServeHTTP(w, r)
			return

		case !authed:
			// Drop a stale cookie so the client stops replaying it.
			a.gate.ClearInvalid(w, r)
			if isAPIPath(r.URL.Path) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// safeAuthenticated runs the gate with panic containment so a broken
// verifier can never crash the middleware pipeline.
func (a *API) safeAuthenticated(r *http.Request) (authed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			authed = false
			err = fmt.Errorf("authentication check panicked: %v", rec)
		}
	}()
	return a.gate.Authenticated(r)
}
