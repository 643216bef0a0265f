package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, lifetime time.Duration, now time.Time) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec("test-signing-key", lifetime)
	require.NoError(t, err)
	codec.now = func() time.Time { return now }
	return codec
}

func TestNewTokenCodecRejectsEmptyKey(t *testing.T) {
	_, err := NewTokenCodec("", time.Hour)
	require.ErrorIs(t, err, ErrNoSigningKey)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, time.Hour, issued)

	token, err := codec.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Valid across the whole lifetime, including the expiry second.
	for _, at := range []time.Time{
		issued,
		issued.Add(30 * time.Minute),
		issued.Add(time.Hour),
	} {
		codec.now = func() time.Time { return at }
		assert.True(t, codec.Verify(token), "token should verify at %v", at)
	}

	// Invalid strictly after expiry.
	codec.now = func() time.Time { return issued.Add(time.Hour + time.Second) }
	assert.False(t, codec.Verify(token))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, time.Hour, now)

	token, err := codec.Issue()
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig := []byte(parts[2])
	for i := range sig {
		flipped := make([]byte, len(sig))
		copy(flipped, sig)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(flipped)
		assert.False(t, codec.Verify(tampered), "flipping signature byte %d must invalidate the token", i)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	codec := newTestCodec(t, time.Hour, time.Now())
	other, err := NewTokenCodec("another-key", time.Hour)
	require.NoError(t, err)

	token, err := codec.Issue()
	require.NoError(t, err)
	assert.False(t, other.Verify(token))
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	codec := newTestCodec(t, time.Hour, time.Now())
	for _, tok := range []string{"", "garbage", "a.b.c", "e30.e30."} {
		assert.False(t, codec.Verify(tok), "token %q must not verify", tok)
	}
}

func TestVerifyRequiresClaims(t *testing.T) {
	codec := newTestCodec(t, time.Hour, time.Now())
	key := []byte("test-signing-key")
	now := time.Now()

	sign := func(claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}

	// Missing authenticated claim.
	assert.False(t, codec.Verify(sign(jwt.MapClaims{
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})))
	// Authenticated present but false.
	assert.False(t, codec.Verify(sign(jwt.MapClaims{
		"authenticated": false, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})))
	// Missing issued-at.
	assert.False(t, codec.Verify(sign(jwt.MapClaims{
		"authenticated": true, "exp": now.Add(time.Hour).Unix(),
	})))
	// Missing expiry.
	assert.False(t, codec.Verify(sign(jwt.MapClaims{
		"authenticated": true, "iat": now.Unix(),
	})))
	// All present and in range.
	assert.True(t, codec.Verify(sign(jwt.MapClaims{
		"authenticated": true, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})))
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	codec := newTestCodec(t, time.Hour, time.Now())
	now := time.Now()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"authenticated": true, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, codec.Verify(tok))
}

func TestLifetimeDefaultsWhenNonPositive(t *testing.T) {
	codec, err := NewTokenCodec("k", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionLifetime, codec.Lifetime())
}
