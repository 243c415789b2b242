package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSessionToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := GenerateSessionToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err, "token must be URL-safe base64")
		assert.Len(t, raw, 32)

		assert.False(t, seen[tok], "token repeated after %d draws", i)
		seen[tok] = true
	}
}

func TestTokenDigest(t *testing.T) {
	a := TokenDigest("token-a")

	assert.Equal(t, a, TokenDigest("token-a"), "digest must be deterministic")
	assert.NotEqual(t, a, TokenDigest("token-b"))
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "token-a")
}
