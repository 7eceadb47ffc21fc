// Package accounts provides the PostgreSQL-backed credential store. Every
// username and credential secret passes through the deterministic field
// cipher on the way into the database and back out, so the plaintext never
// touches disk while equality lookups still work against the ciphertext.
package accounts

import (
	"context"
	"time"

	"github.com/mpopescu/famvault/internal/server/models"
)

// Repository is the persistence contract for accounts. Implementations
// perform no authorization; guards such as "never delete an admin" belong to
// the services layer.
type Repository interface {
	// Create inserts the account and returns it with its store-assigned ID.
	// A duplicate plaintext username yields common.ErrorConflict.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// FindByUsername looks up an account by plaintext username.
	FindByUsername(ctx context.Context, username string) (*models.Account, error)

	FindByID(ctx context.Context, id string) (*models.Account, error)

	// FindByRefreshToken matches the opaque refresh-token value exactly.
	FindByRefreshToken(ctx context.Context, token string) (*models.Account, error)

	// FindAdmin returns any account flagged admin, or common.ErrorNotFound.
	FindAdmin(ctx context.Context) (*models.Account, error)

	// ListPendingApproval returns accounts awaiting approval.
	ListPendingApproval(ctx context.Context) ([]*models.Account, error)

	// ListNonAdmin returns all non-admin accounts.
	ListNonAdmin(ctx context.Context) ([]*models.Account, error)

	// Update fully replaces the stored account keyed by ID.
	Update(ctx context.Context, account *models.Account) error

	// RotateRefreshToken atomically replaces oldToken with the new value,
	// conditioned on oldToken still being current. When another request has
	// already rotated it, no row matches and common.ErrorInvalidToken is
	// returned, which makes each refresh token single-use.
	RotateRefreshToken(ctx context.Context, accountID, oldToken, newToken string, expiry time.Time) error

	// Delete removes the account by ID.
	Delete(ctx context.Context, id string) error
}
