package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mpopescu/famvault/internal/cryptox"
	"github.com/mpopescu/famvault/internal/dbx"
	"github.com/mpopescu/famvault/internal/server/migrations"
	"github.com/mpopescu/famvault/internal/server/repositories/accounts"
	"github.com/mpopescu/famvault/internal/server/repositories/media"
	"github.com/mpopescu/famvault/internal/server/repositories/revokedtokens"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories. The field
// cipher is shared by every repository that encrypts at rest.
type PostgresRepositoryManager struct {
	cipher *cryptox.SearchableCipher
}

// NewPostgresRepositoryManager constructs a manager using the given field
// cipher.
func NewPostgresRepositoryManager(cipher *cryptox.SearchableCipher) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{cipher: cipher}
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db, m.cipher)
}

// RevokedTokens returns a revokedtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RevokedTokens(db dbx.DBTX) revokedtokens.Repository {
	return revokedtokens.NewPostgresRepository(db)
}

// Media returns a media.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Media(db dbx.DBTX) media.Repository {
	return media.NewPostgresRepository(db, m.cipher)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations points goose at the embedded migrations and applies them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
