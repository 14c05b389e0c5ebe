package secrets

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shopcore/pkg/domain-errors"
)

func TestGenerateTokenEntropyAndEncoding(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err, "token must be URL-safe base64")
	assert.GreaterOrEqual(t, len(raw), 24, "token must carry at least 24 bytes of entropy")

	other, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestDigestIsStableAndOneWay(t *testing.T) {
	token := "some-opaque-token"
	assert.Equal(t, Digest(token), Digest(token))
	assert.NotEqual(t, token, Digest(token))
	assert.Len(t, Digest(token), 64)
}

func TestDigestEqual(t *testing.T) {
	d := Digest("a-token")
	assert.True(t, DigestEqual(d, Digest("a-token")))
	assert.False(t, DigestEqual(d, Digest("b-token")))
	assert.False(t, DigestEqual(d, ""))
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	require.NoError(t, VerifyPassword("hunter22", hash))

	err = VerifyPassword("wrong", hash)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
