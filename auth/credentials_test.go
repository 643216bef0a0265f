package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialsUnconfigured(t *testing.T) {
	creds := NewCredentials("")
	assert.False(t, creds.Configured())
	assert.False(t, creds.Verify(""))
	assert.False(t, creds.Verify("anything"))
}

func TestCredentialsExactEquality(t *testing.T) {
	creds := NewCredentials("s3cret")
	assert.True(t, creds.Configured())
	assert.True(t, creds.Verify("s3cret"))
	assert.False(t, creds.Verify("S3cret"), "comparison is case-sensitive")
	assert.False(t, creds.Verify("s3cret "))
	assert.False(t, creds.Verify(""))
}

func TestCredentialsVerifyIsRepeatable(t *testing.T) {
	// The enclave is reopened per call; make sure repeated checks work.
	creds := NewCredentials("s3cret")
	for i := 0; i < 3; i++ {
		assert.True(t, creds.Verify("s3cret"))
		assert.False(t, creds.Verify("wrong"))
	}
}

func TestCredentialsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	creds := NewCredentials(string(hash))
	assert.True(t, creds.Configured())
	assert.True(t, creds.Verify("hunter22"))
	assert.False(t, creds.Verify("hunter2"))
	assert.False(t, creds.Verify(string(hash)), "the hash itself is not the password")
}
