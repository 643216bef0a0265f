// Package api exposes the journal over HTTP: the authentication
// endpoints, the moment CRUD surface, media uploads and the edge
// middleware classifying every request path.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/lumenjournal/lumen/auth"
	"github.com/lumenjournal/lumen/docstore"
	"github.com/lumenjournal/lumen/upload"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	gate        *auth.Gate
	store       docstore.Store
	sink        upload.Sink
	limits      upload.Limits
	baseURL     string
	uploadDir   string
	web         http.Handler
	rateLimiter *loginRateLimiter
	audit       *auditLogger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithUploads wires the media upload sink and its validation limits.
// Without it the upload endpoints respond 500.
func WithUploads(sink upload.Sink, limits upload.Limits) Option {
	return func(a *API) {
		a.sink = sink
		a.limits = limits
	}
}

// WithBaseURL sets the public base URL used to absolutize relative
// media paths before they reach the document store.
func WithBaseURL(u string) Option {
	return func(a *API) {
		a.baseURL = u
	}
}

// WithUploadDir serves locally stored media under /uploads/.
func WithUploadDir(dir string) Option {
	return func(a *API) {
		a.uploadDir = dir
	}
}

// WithWeb mounts the browser app as the catch-all handler, behind the
// edge middleware so navigational classification applies to it.
func WithWeb(h http.Handler) Option {
	return func(a *API) {
		a.web = h
	}
}

// New creates a new API instance.
func New(gate *auth.Gate, store docstore.Store, opts ...Option) *API {
	a := &API{
		gate:        gate,
		store:       store,
		rateLimiter: newLoginRateLimiter(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns the application router. The edge middleware wraps
// everything mounted here; route-level auth checks are redundant on
// purpose and absent.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(a.EdgeMiddleware)
	r.Use(a.CSRFMiddleware)

	r.Get("/api/v1/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Post("/api/auth/login", a.Login)
	r.Post("/api/auth/logout", a.Logout)
	r.Get("/api/auth/status", a.Status)
	r.Post("/api/auth/verify-token", a.VerifyToken)

	r.Get("/api/health", a.Health)

	r.Route("/api/moments", func(r chi.Router) {
		r.Get("/", a.ListMoments)
		r.Post("/", a.CreateMoment)
		r.Get("/search", a.SearchMoments)
		r.Get("/tags", a.ListTags)
		r.Get("/filter/status/{status}", a.FilterByStatus)
		r.Get("/filter/tag/{tag}", a.FilterByTag)
		r.Get("/filter/favorited", a.FilterFavorited)
		r.Get("/{id}", a.GetMoment)
		r.Put("/{id}", a.UpdateMoment)
		r.Delete("/{id}", a.DeleteMoment)
		r.Patch("/{id}/favorite", a.ToggleFavorite)
	})

	r.Route("/api/upload", func(r chi.Router) {
		r.Post("/image", a.UploadImage)
		r.Post("/images", a.UploadImages)
		r.Post("/video", a.UploadVideo)
		r.Get("/info", a.UploadInfo)
	})

	if a.uploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.uploadDir))))
	}
	if a.web != nil {
		r.Handle("/*", a.web)
	}

	return r
}
