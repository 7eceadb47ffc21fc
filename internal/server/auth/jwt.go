// Package auth issues and validates the credentials that prove identity:
// signed access tokens (JWT, HS256) and opaque random refresh tokens.
//
// Validation here checks signature and expiry only. Whether a token has been
// revoked is the revocation list's business, consulted by the services layer.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mpopescu/famvault/internal/common"
)

// Access-token role claim values.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// refreshTokenBytes is the entropy of a refresh token: 32 bytes = 256 bits.
const refreshTokenBytes = 32

// Claims carries the standard registered claims plus the account identity:
// the plaintext username and its role ("Admin" or "User").
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// GenerateAccessToken mints a signed HS256 token for the given identity,
// expiring after validity. The secret must be the token-signing key, which
// is a separate secret from the field cipher key.
func GenerateAccessToken(username, role string, secret []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Username: username,
		Role:     role,
	})

	return token.SignedString(secret)
}

// ParseAccessToken verifies the signature and expiry of tokenString and
// returns its claims. Any verification failure, including expiry, maps to
// common.ErrorInvalidToken; callers must not learn which check failed.
func ParseAccessToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, common.ErrorInvalidToken
	}

	return claims, nil
}

// GenerateRefreshToken returns a new opaque refresh token with 256 bits of
// entropy. Tokens are never reused across sessions.
func GenerateRefreshToken() (string, error) {
	return common.MakeRandBase64String(refreshTokenBytes)
}
