package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenjournal/lumen/auth"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want pathClass
	}{
		{"/api/auth/login", classPublic},
		{"/api/auth/status", classPublic},
		{"/api/health", classPublic},
		{"/api/v1/openapi.yaml", classPublic},
		{"/docs", classPublic},
		{"/redoc", classPublic},
		{"/favicon.ico", classPublic},
		{"/robots.txt", classPublic},
		{"/sitemap.xml", classPublic},
		{"/uploads/images/a.png", classStatic},
		{"/assets/app.js", classStatic},
		{"/icons/192.png", classStatic},
		{"/images/logo.svg", classStatic},
		{"/", classProtected},
		{"/journal", classProtected},
		{"/api/moments", classProtected},
		{"/api/moments/abc/favorite", classProtected},
		{"/api/upload/image", classProtected},
		// Prefix matching is deliberate: subpaths inherit the class.
		{"/api/auth/anything", classPublic},
		{"/uploads/../secrets", classStatic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.path), "path %s", tt.path)
	}
}

func TestIsAPIPath(t *testing.T) {
	assert.True(t, isAPIPath("/api/moments"))
	assert.True(t, isAPIPath("/api/auth/login"))
	assert.False(t, isAPIPath("/journal"))
	assert.False(t, isAPIPath("/"))
}

func newMiddlewareAPI(t *testing.T, gate *auth.Gate) *API {
	t.Helper()
	return New(gate, nil)
}

func testGate(t *testing.T, password string) *auth.Gate {
	t.Helper()
	codec, err := auth.NewTokenCodec("middleware-test-key", time.Hour)
	require.NoError(t, err)
	return auth.NewGate(auth.NewCredentials(password), codec, auth.CookieTransport{})
}

// passProbe records whether the wrapped handler ran.
type passProbe struct{ hit bool }

func (p *passProbe) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	p.hit = true
	w.WriteHeader(http.StatusOK)
}

func TestEdgeMiddlewareUnauthenticatedNavPassesThrough(t *testing.T) {
	a := newMiddlewareAPI(t, testGate(t, "pw"))
	probe := &passProbe{}
	h := a.EdgeMiddleware(probe)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/journal", nil))

	assert.True(t, probe.hit, "navigational path must reach the page shell")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEdgeMiddlewareUnauthenticatedAPIRefused(t *testing.T) {
	a := newMiddlewareAPI(t, testGate(t, "pw"))
	probe := &passProbe{}
	h := a.EdgeMiddleware(probe)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/moments", nil))

	assert.False(t, probe.hit)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeUnauthorized)
}

func TestEdgeMiddlewarePublicAndStaticPass(t *testing.T) {
	a := newMiddlewareAPI(t, testGate(t, "pw"))
	for _, path := range []string{"/api/auth/status", "/uploads/images/x.png"} {
		probe := &passProbe{}
		rec := httptest.NewRecorder()
		a.EdgeMiddleware(probe).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.True(t, probe.hit, "path %s", path)
	}
}

func TestEdgeMiddlewareAuthenticatedPasses(t *testing.T) {
	gate := testGate(t, "pw")
	a := newMiddlewareAPI(t, gate)

	// Establish a session to get a genuine token.
	rec := httptest.NewRecorder()
	_, err := gate.StartSession(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	require.NoError(t, err)
	cookie := rec.Result().Cookies()[0]

	probe := &passProbe{}
	req := httptest.NewRequest(http.MethodGet, "/api/moments", nil)
	req.AddCookie(cookie)
	a.EdgeMiddleware(probe).ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, probe.hit)
}

func TestEdgeMiddlewareUnconfigured(t *testing.T) {
	a := newMiddlewareAPI(t, testGate(t, ""))

	t.Run("api path gets json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.EdgeMiddleware(&passProbe{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/moments", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		assert.Contains(t, rec.Body.String(), CodeConfigurationError)
	})

	t.Run("nav path gets html", func(t *testing.T) {
		probe := &passProbe{}
		rec := httptest.NewRecorder()
		a.EdgeMiddleware(probe).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/journal", nil))
		assert.False(t, probe.hit, "unconfigured server stays closed")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	})
}

// A gate with a nil codec panics on verification; the middleware must
// contain it.
func TestEdgeMiddlewareContainsGatePanic(t *testing.T) {
	gate := auth.NewGate(auth.NewCredentials("pw"), nil, auth.CookieTransport{})
	a := newMiddlewareAPI(t, gate)

	t.Run("api path gets server error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/moments", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "anything"})
		require.NotPanics(t, func() {
			a.EdgeMiddleware(&passProbe{}).ServeHTTP(rec, req)
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), CodeServerError)
	})

	t.Run("nav path passes through", func(t *testing.T) {
		probe := &passProbe{}
		req := httptest.NewRequest(http.MethodGet, "/journal", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "anything"})
		require.NotPanics(t, func() {
			a.EdgeMiddleware(probe).ServeHTTP(httptest.NewRecorder(), req)
		})
		assert.True(t, probe.hit)
	})
}
