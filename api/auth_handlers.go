package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumenjournal/lumen/auth"
)

// setAntiCacheHeaders keeps auth responses out of every cache layer.
// Session state must never be served stale.
func setAntiCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// Login handles POST /api/auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	setAntiCacheHeaders(w)

	if !a.gate.Credentials().Configured() {
		a.audit.log(auditConfigError, r)
		writeError(w, http.StatusInternalServerError, CodeConfigurationError, "access password not configured")
		return
	}

	if blocked, retryAfter := a.rateLimiter.check(clientIP(r)); blocked {
		a.audit.log(auditLoginRateLimited, r)
		writeRateLimited(w, retryAfter)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "password is required")
		return
	}

	if !a.gate.Credentials().Verify(req.Password) {
		a.rateLimiter.recordFailure(clientIP(r))
		a.audit.log(auditLoginFailure, r)
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid password")
		return
	}

	token, err := a.gate.StartSession(w, r)
	if err != nil {
		a.audit.log(auditLoginFailure, r, slog.String("error", err.Error()))
		mapError(w, err)
		return
	}
	a.rateLimiter.recordSuccess(clientIP(r))
	writeCSRFCookie(w, r)
	a.audit.log(auditLoginSuccess, r)

	resp := loginResponse{Success: true, Message: "login successful"}
	if a.gate.Transport().EchoToken() {
		resp.Token = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout. Logging out without a session
// is not an error.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	setAntiCacheHeaders(w)
	a.gate.EndSession(w, r)
	clearCSRFCookie(w, r)
	a.audit.log(auditLogout, r)
	writeJSON(w, http.StatusOK, logoutResponse{Success: true, Message: "logged out"})
}

// Status handles GET /api/auth/status. It always answers 200 so the
// page shell can render the right state, including on an unconfigured
// server.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	setAntiCacheHeaders(w)

	authed, err := a.gate.Authenticated(r)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		writeJSON(w, http.StatusOK, statusResponse{
			Authenticated:      false,
			AuthEnabled:        true,
			PasswordConfigured: false,
			Message:            "access password not configured",
		})
	case err != nil:
		mapError(w, err)
	default:
		writeJSON(w, http.StatusOK, statusResponse{
			Success:            true,
			Authenticated:      authed,
			AuthEnabled:        true,
			PasswordConfigured: true,
		})
	}
}

// VerifyToken handles POST /api/auth/verify-token: a pure token check
// for clients holding a mirrored copy of the session token.
func (a *API) VerifyToken(w http.ResponseWriter, r *http.Request) {
	setAntiCacheHeaders(w)

	var req verifyTokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "token is required")
		return
	}
	writeJSON(w, http.StatusOK, verifyTokenResponse{
		Success: true,
		Valid:   a.gate.VerifyToken(req.Token),
	})
}
