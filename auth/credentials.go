package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/bcrypt"
)

// Credentials holds the configured access secret. The secret is read
// once from configuration at startup and kept in a memguard enclave so
// it is encrypted at rest in memory. Immutable for the process
// lifetime.
type Credentials struct {
	secret *memguard.Enclave
	hashed bool
}

// NewCredentials builds the credential store from the configured access
// secret. An empty secret yields an unconfigured store, which is a
// legal state: Verify then refuses every candidate.
//
// When the secret carries a bcrypt prefix ($2a$, $2b$, $2y$) it is
// treated as a password hash and candidates are compared with bcrypt;
// otherwise comparison is exact, case-sensitive string equality.
func NewCredentials(secret string) *Credentials {
	if secret == "" {
		return &Credentials{}
	}
	return &Credentials{
		secret: memguard.NewEnclave([]byte(secret)),
		hashed: isBcryptHash(secret),
	}
}

// Configured reports whether an access secret is set.
func (c *Credentials) Configured() bool {
	return c.secret != nil
}

// Verify reports whether the candidate matches the configured secret.
// An unconfigured store refuses every candidate; the gate surfaces that
// state separately as ErrNotConfigured.
func (c *Credentials) Verify(candidate string) bool {
	if !c.Configured() {
		return false
	}
	buf, err := c.secret.Open()
	if err != nil {
		return false
	}
	defer buf.Destroy()

	if c.hashed {
		return bcrypt.CompareHashAndPassword(buf.Bytes(), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare(buf.Bytes(), []byte(candidate)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") ||
		strings.HasPrefix(s, "$2b$") ||
		strings.HasPrefix(s, "$2y$")
}
