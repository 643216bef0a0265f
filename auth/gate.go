package auth

import (
	"errors"
	"net/http"
)

// ErrNotConfigured is reported when no access password is set. The
// middleware maps it to a 500 CONFIGURATION_ERROR response; it is a
// deployment defect, not a per-request authentication failure.
var ErrNotConfigured = errors.New("access password not configured")

// Gate is the request-time authentication decision. It combines the
// credential store, the token codec and the session transport; it
// holds no per-request state and is safe for concurrent use.
type Gate struct {
	creds     *Credentials
	codec     *TokenCodec
	transport SessionTransport
}

// NewGate assembles a gate from its three collaborators.
func NewGate(creds *Credentials, codec *TokenCodec, transport SessionTransport) *Gate {
	return &Gate{creds: creds, codec: codec, transport: transport}
}

// Credentials returns the underlying credential store.
func (g *Gate) Credentials() *Credentials { return g.creds }

// Transport returns the session transport in use.
func (g *Gate) Transport() SessionTransport { return g.transport }

// Authenticated reports whether the request carries a currently valid
// session token. On an unconfigured system it returns
// (false, ErrNotConfigured). Verification is read-only: no cookie
// mutation happens here.
func (g *Gate) Authenticated(r *http.Request) (bool, error) {
	if !g.creds.Configured() {
		return false, ErrNotConfigured
	}
	token, ok := g.transport.Extract(r)
	if !ok {
		return false, nil
	}
	return g.codec.Verify(token), nil
}

// AuthenticatedToken is the request-free variant of Authenticated for
// contexts that already hold the raw token. Both paths resolve to the
// same codec verdict for the same token.
func (g *Gate) AuthenticatedToken(token string) (bool, error) {
	if !g.creds.Configured() {
		return false, ErrNotConfigured
	}
	if token == "" {
		return false, nil
	}
	return g.codec.Verify(token), nil
}

// VerifyToken reports whether a client-held token currently verifies.
// Unlike Authenticated it does not consult the credential store: it is
// a pure codec check used by the verify-token endpoint.
func (g *Gate) VerifyToken(token string) bool {
	return g.codec.Verify(token)
}

// StartSession issues a fresh token and binds it to the client via the
// transport. The returned raw token is needed by mirrored transports.
func (g *Gate) StartSession(w http.ResponseWriter, r *http.Request) (string, error) {
	token, err := g.codec.Issue()
	if err != nil {
		return "", err
	}
	g.transport.Establish(w, r, token, g.codec.Lifetime())
	return token, nil
}

// EndSession clears the session binding. Idempotent.
func (g *Gate) EndSession(w http.ResponseWriter, r *http.Request) {
	g.transport.Clear(w, r)
}

// ClearInvalid removes a stale session binding when the presented
// token fails verification. Only callers that own the response (the
// edge middleware) use this, so pure verification paths stay free of
// cookie mutations.
func (g *Gate) ClearInvalid(w http.ResponseWriter, r *http.Request) {
	if token, ok := g.transport.Extract(r); ok && !g.codec.Verify(token) {
		g.transport.Clear(w, r)
	}
}
