// Package auth implements the password-gated session subsystem: the
// credential store holding the configured access secret, the signed
// session token codec, the session transport (cookie or mirrored
// client-held token), and the gate that decides whether a request is
// authenticated.
//
// Sessions are stateless: a session is nothing more than a signed,
// time-limited token held by the client. There is no server-side
// session table and no revocation list; every request re-verifies its
// own token. Tokens are never renewed — a new login replaces the old
// token wholesale.
//
// Policy: an unconfigured system (no access password set) is closed.
// The gate reports ErrNotConfigured and every protected request is
// refused until a password is configured. This is applied uniformly
// across the gate, the credential store and the auth endpoints.
package auth
