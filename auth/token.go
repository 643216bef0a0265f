package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/awnumar/memguard"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionLifetime is used when no lifetime is configured.
const DefaultSessionLifetime = 24 * time.Hour

// devSigningKey is the fallback signing key for non-production use.
// Production deployments must configure a real key; config.Validate
// treats a missing key in production as a fatal startup error.
const devSigningKey = "lumen-dev-signing-key-not-for-production"

// ErrNoSigningKey is returned when a codec is constructed without key
// material.
var ErrNoSigningKey = errors.New("signing key is empty")

// TokenCodec creates and verifies signed session tokens. Tokens are
// HS256 JWTs carrying three claims: authenticated (always true when
// issued), iat and exp. Verification fails closed: every decoding or
// signature error degrades to false and never escapes the codec.
type TokenCodec struct {
	key      *memguard.Enclave
	lifetime time.Duration

	// now is the clock used for issuance and expiry checks. Tests
	// substitute a fixed clock.
	now func() time.Time
}

// NewTokenCodec builds a codec from the configured signing key and
// session lifetime. An empty key is an error; callers that allow the
// development fallback should pass DevSigningKey explicitly.
func NewTokenCodec(key string, lifetime time.Duration) (*TokenCodec, error) {
	if key == "" {
		return nil, ErrNoSigningKey
	}
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &TokenCodec{
		key:      memguard.NewEnclave([]byte(key)),
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// DevSigningKey returns the fixed non-production fallback key.
func DevSigningKey() string { return devSigningKey }

// Lifetime returns the configured session lifetime.
func (c *TokenCodec) Lifetime() time.Duration { return c.lifetime }

// Issue produces a signed token valid from now until now+lifetime.
func (c *TokenCodec) Issue() (string, error) {
	buf, err := c.key.Open()
	if err != nil {
		return "", fmt.Errorf("opening signing key: %w", err)
	}
	defer buf.Destroy()

	now := c.now()
	claims := jwt.MapClaims{
		"authenticated": true,
		"iat":           now.Unix(),
		"exp":           now.Add(c.lifetime).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// Verify reports whether the token is currently valid: the signature
// must verify, the authenticated claim must be present and true, iat
// and exp must be present, and the current time must not be past exp.
// The expiry comparison is now > exp, so a token is still valid at the
// exact expiry second.
func (c *TokenCodec) Verify(tokenString string) bool {
	buf, err := c.key.Open()
	if err != nil {
		return false
	}
	defer buf.Destroy()
	key := buf.Bytes()

	// Claims validation is done by hand below so the expiry boundary
	// follows the strict now > exp rule.
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	authenticated, ok := claims["authenticated"].(bool)
	if !ok || !authenticated {
		return false
	}
	if _, ok := claims["iat"].(float64); !ok {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return c.now().Unix() <= int64(exp)
}
