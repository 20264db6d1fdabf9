package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewCallbackToken()
	require.NoError(t, err)
	assert.Len(t, token, 48) // 24 random bytes, hex encoded

	hash, err := HashToken(token)
	require.NoError(t, err)
	assert.NotEqual(t, token, hash)

	assert.NoError(t, CompareToken(hash, token))
}

func TestCompareTokenMismatch(t *testing.T) {
	token, err := NewCallbackToken()
	require.NoError(t, err)
	hash, err := HashToken(token)
	require.NoError(t, err)

	assert.Error(t, CompareToken(hash, "not-the-token"))
	assert.Error(t, CompareToken(hash, ""))
}

func TestTokensAreUnique(t *testing.T) {
	a, err := NewCallbackToken()
	require.NoError(t, err)
	b, err := NewCallbackToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
