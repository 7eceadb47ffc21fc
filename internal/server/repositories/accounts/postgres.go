package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpopescu/famvault/internal/common"
	"github.com/mpopescu/famvault/internal/cryptox"
	"github.com/mpopescu/famvault/internal/dbx"
	"github.com/mpopescu/famvault/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

const accountColumns = `id, username, credential_secret, is_admin, is_approved,
	       COALESCE(refresh_token, ''), COALESCE(refresh_token_expires_at, 'epoch'::timestamptz), created_at`

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx), encrypting protected fields with the given cipher.
type PostgresRepository struct {
	db     dbx.DBTX
	cipher *cryptox.SearchableCipher
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, cipher *cryptox.SearchableCipher) *PostgresRepository {
	return &PostgresRepository{db: db, cipher: cipher}
}

// Create inserts the account with username and credential secret encrypted.
// The UNIQUE constraint on the encrypted username makes concurrent
// registrations of the same name safe: the loser gets common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	encUsername, err := r.cipher.Encrypt(account.Username)
	if err != nil {
		return nil, fmt.Errorf("encrypt error: %w", err)
	}
	encSecret, err := r.cipher.Encrypt(account.CredentialSecret)
	if err != nil {
		return nil, fmt.Errorf("encrypt error: %w", err)
	}

	query := `
		INSERT INTO accounts (username, credential_secret, is_admin, is_approved)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		encUsername, encSecret, account.IsAdmin, account.IsApproved).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// FindByUsername encrypts the query term and matches the ciphertext exactly.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	encUsername, err := r.cipher.Encrypt(username)
	if err != nil {
		return nil, fmt.Errorf("encrypt error: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, encUsername))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE refresh_token = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) FindAdmin(ctx context.Context) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE is_admin LIMIT 1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query))
}

func (r *PostgresRepository) ListPendingApproval(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE NOT is_approved ORDER BY created_at`
	return r.queryAccounts(ctx, query)
}

func (r *PostgresRepository) ListNonAdmin(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE NOT is_admin ORDER BY created_at`
	return r.queryAccounts(ctx, query)
}

// Update fully replaces the stored row keyed by ID, re-encrypting the
// protected fields.
func (r *PostgresRepository) Update(ctx context.Context, account *models.Account) error {
	encUsername, err := r.cipher.Encrypt(account.Username)
	if err != nil {
		return fmt.Errorf("encrypt error: %w", err)
	}
	encSecret, err := r.cipher.Encrypt(account.CredentialSecret)
	if err != nil {
		return fmt.Errorf("encrypt error: %w", err)
	}

	query := `
		UPDATE accounts
		SET username = $2, credential_secret = $3, is_admin = $4, is_approved = $5,
		    refresh_token = NULLIF($6, ''), refresh_token_expires_at = $7
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, account.ID,
		encUsername, encSecret, account.IsAdmin, account.IsApproved,
		account.RefreshToken, nullableTime(account.RefreshTokenExpiry))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

// RotateRefreshToken performs the single-use rotation: the UPDATE matches on
// the old token value, so of two concurrent refreshes only one finds a row.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, accountID, oldToken, newToken string, expiry time.Time) error {
	query := `
		UPDATE accounts
		SET refresh_token = $3, refresh_token_expires_at = $4
		WHERE id = $1 AND refresh_token = $2
	`
	res, err := r.db.ExecContext(ctx, query, accountID, oldToken, newToken, expiry)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorInvalidToken
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Username, &a.CredentialSecret, &a.IsAdmin, &a.IsApproved,
		&a.RefreshToken, &a.RefreshTokenExpiry, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, r.decode(a)
}

func (r *PostgresRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.Username, &a.CredentialSecret, &a.IsAdmin, &a.IsApproved,
			&a.RefreshToken, &a.RefreshTokenExpiry, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := r.decode(a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// decode replaces the encrypted username and credential secret with their
// plaintext before the account leaves the repository.
func (r *PostgresRepository) decode(a *models.Account) error {
	username, err := r.cipher.Decrypt(a.Username)
	if err != nil {
		return fmt.Errorf("decrypt error: %w", err)
	}
	secret, err := r.cipher.Decrypt(a.CredentialSecret)
	if err != nil {
		return fmt.Errorf("decrypt error: %w", err)
	}
	a.Username = username
	a.CredentialSecret = secret
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
