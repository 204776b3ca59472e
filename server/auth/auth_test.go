package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateAccessToken("user-1", time.Now().Add(time.Hour), secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := VerifyAccessToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-1", time.Now().Add(time.Hour), []byte("secret-a"))
	require.NoError(t, err)

	_, err = VerifyAccessToken(token, []byte("secret-b"))
	assert.Error(t, err)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateAccessToken("user-1", time.Now().Add(-time.Minute), secret)
	require.NoError(t, err)

	_, err = VerifyAccessToken(token, secret)
	assert.Error(t, err)
}

func TestVerifyAccessTokenGarbage(t *testing.T) {
	_, err := VerifyAccessToken("not-a-token", []byte("secret"))
	assert.Error(t, err)
}

func TestAPIKeyHashing(t *testing.T) {
	hash, err := HashAPIKey("service-key")
	require.NoError(t, err)

	assert.True(t, VerifyAPIKey("service-key", hash))
	assert.False(t, VerifyAPIKey("wrong-key", hash))
	assert.False(t, VerifyAPIKey("service-key", "not-a-hash"))
}
