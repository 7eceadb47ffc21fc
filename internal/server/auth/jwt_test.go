package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpopescu/famvault/internal/common"
)

var testSecret = []byte("test-signing-secret")

func TestGenerateAccessToken_ClaimsRoundtrip(t *testing.T) {
	tokenString, err := GenerateAccessToken("alice", RoleUser, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := ParseAccessToken(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, RoleUser, claims.Role)
	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.ExpiresAt.After(time.Now()), "expiry must be in the future")
}

func TestGenerateAccessToken_AdminRole(t *testing.T) {
	tokenString, err := GenerateAccessToken("root", RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseAccessToken_Expired(t *testing.T) {
	tokenString, err := GenerateAccessToken("alice", RoleUser, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(tokenString, testSecret)
	assert.ErrorIs(t, err, common.ErrorInvalidToken)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	tokenString, err := GenerateAccessToken("alice", RoleUser, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(tokenString, []byte("other-secret"))
	assert.ErrorIs(t, err, common.ErrorInvalidToken)
}

func TestParseAccessToken_WrongAlgorithm(t *testing.T) {
	// An unsigned token must never pass, whatever its claims say.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "alice", Role: RoleAdmin})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(tokenString, testSecret)
	assert.ErrorIs(t, err, common.ErrorInvalidToken)
}

func TestParseAccessToken_Garbage(t *testing.T) {
	_, err := ParseAccessToken("definitely-not-a-jwt", testSecret)
	assert.ErrorIs(t, err, common.ErrorInvalidToken)
}

func TestGenerateRefreshToken_EntropyAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		tok, err := GenerateRefreshToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(raw)*8, 256, "refresh token must carry at least 256 bits")

		if _, ok := seen[tok]; ok {
			t.Fatalf("refresh token repeated after %d draws", i)
		}
		seen[tok] = struct{}{}
	}
}
