package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("user-123", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Empty(t, claims.SessionID)
}

func TestSignWithOptionsCarriesSessionMetadata(t *testing.T) {
	token, err := SignWithOptions("user-123", time.Hour, SignOptions{
		SessionID: "sess-1",
		IP:        "192.0.2.1",
		UA:        "test-agent",
	})
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "192.0.2.1", claims.IP)
	assert.Equal(t, "test-agent", claims.UA)
}

func TestParseExpiredToken(t *testing.T) {
	token, err := Sign("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token)
	assert.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse("not.a.token")
	assert.Error(t, err)
}

func TestSetSecretInvalidatesOldTokens(t *testing.T) {
	t.Cleanup(func() { secret = []byte(defaultSecret) })

	token, err := Sign("user-123", time.Hour)
	require.NoError(t, err)

	SetSecret("rotated-secret")
	_, err = Parse(token)
	assert.Error(t, err)

	fresh, err := Sign("user-123", time.Hour)
	require.NoError(t, err)
	claims, err := Parse(fresh)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestSetSecretIgnoresEmpty(t *testing.T) {
	t.Cleanup(func() { secret = []byte(defaultSecret) })

	token, err := Sign("user-123", time.Hour)
	require.NoError(t, err)

	SetSecret("")
	_, err = Parse(token)
	assert.NoError(t, err)
}
