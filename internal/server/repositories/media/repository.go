// Package media provides the PostgreSQL-backed media catalog. Description,
// story, and each person name are encrypted at rest with the deterministic
// field cipher, mirroring how account data is protected.
package media

import (
	"context"

	"github.com/mpopescu/famvault/internal/server/models"
)

// Repository is the persistence contract for the media catalog.
type Repository interface {
	// Create inserts the record and returns it with its store-assigned ID.
	Create(ctx context.Context, m *models.Media) (*models.Media, error)

	// FindByID looks a record up by its store-assigned ID.
	FindByID(ctx context.Context, id string) (*models.Media, error)

	// FindByStorageKey looks a record up by its object-storage key.
	FindByStorageKey(ctx context.Context, key string) (*models.Media, error)

	// List returns one page ordered by creation time, newest first, plus the
	// total record count.
	List(ctx context.Context, offset, limit int) ([]*models.Media, int64, error)

	// ListAll returns every record. Person search decrypts in memory, so it
	// cannot be pushed into the store.
	ListAll(ctx context.Context) ([]*models.Media, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error
}
