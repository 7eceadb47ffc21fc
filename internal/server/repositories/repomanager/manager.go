// Package repomanager wires repository constructors to a database handle and
// owns schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/mpopescu/famvault/internal/dbx"
	"github.com/mpopescu/famvault/internal/server/repositories/accounts"
	"github.com/mpopescu/famvault/internal/server/repositories/media"
	"github.com/mpopescu/famvault/internal/server/repositories/revokedtokens"
)

// RepositoryManager vends repositories bound to a DBTX, which lets services
// run the same repository code on *sql.DB or inside a transaction.
type RepositoryManager interface {
	Accounts(db dbx.DBTX) accounts.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
	Media(db dbx.DBTX) media.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
