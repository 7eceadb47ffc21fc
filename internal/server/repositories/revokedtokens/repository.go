// Package revokedtokens provides the PostgreSQL-backed revocation list for
// access tokens invalidated before their natural expiry (logout).
package revokedtokens

import (
	"context"
	"time"
)

// Repository is the persistence contract for the revocation list.
type Repository interface {
	// Revoke appends the token with the given expiry. Revoking the same
	// token again is harmless.
	Revoke(ctx context.Context, token string, expiry time.Time) error

	// IsRevoked reports whether a non-expired entry exists for exactly this
	// token string.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// PurgeExpired removes entries whose retention window has passed and
	// returns how many were deleted.
	PurgeExpired(ctx context.Context) (int64, error)
}
