package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lumenjournal/lumen/auth"
	"github.com/lumenjournal/lumen/docstore"
	"github.com/lumenjournal/lumen/upload"
)

// Stable machine-readable error codes carried by every error response.
const (
	CodeConfigurationError = "CONFIGURATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeServerError        = "SERVER_ERROR"
)

// ErrorResponse is the uniform error body. Success is always false;
// Message is safe to show to clients.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// maxBodyBytes caps JSON request bodies. Media uploads have their own
// limit.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg, Code: code})
}

// mapError translates domain errors into responses. Internal detail
// stays out of the body; callers log it.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, CodeConfigurationError, "access password not configured")
	case errors.Is(err, docstore.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "moment not found")
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusBadRequest, CodeBadRequest, "file too large")
	case errors.Is(err, upload.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, CodeBadRequest, "unsupported file type")
	default:
		writeError(w, http.StatusInternalServerError, CodeServerError, "internal server error")
	}
}

// decodeJSON reads a JSON request body into v, rejecting unknown
// fields and oversized bodies.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
