// Package common provides utility functions for generating random
// token material.
package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandBase64String generates a random URL-safe base64 string built from
// size random bytes. The resulting string carries size*8 bits of entropy and
// is suitable for opaque bearer secrets such as refresh tokens.
//
// It returns an error only if the random number generator fails.
func MakeRandBase64String(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
