// Package services contains server-side business logic. This file implements
// SessionService, which orchestrates registration, login, token refresh,
// logout, moderation, and the admin bootstrap on top of the credential
// store, the token issuer, and the revocation list.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mpopescu/famvault/internal/common"
	"github.com/mpopescu/famvault/internal/dbx"
	"github.com/mpopescu/famvault/internal/server/auth"
	"github.com/mpopescu/famvault/internal/server/config"
	"github.com/mpopescu/famvault/internal/server/models"
	"github.com/mpopescu/famvault/internal/server/repositories/repomanager"
)

// SessionService provides the authentication and account-lifecycle
// operations exposed to the HTTP layer.
type SessionService struct {
	db                   *sql.DB
	repomanager          repomanager.RepositoryManager
	jwtSecret            []byte
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
	revocationRetention  time.Duration
}

// NewSessionService constructs a SessionService from repositories and config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                   db,
		repomanager:          m,
		jwtSecret:            []byte(cfg.JWTSecret),
		accessTokenValidity:  cfg.AccessTokenValidity,
		refreshTokenValidity: cfg.RefreshTokenValidity,
		revocationRetention:  cfg.RevocationRetention,
	}
}

// Register creates a new account. Accounts register unapproved unless the
// caller marks them pre-approved (invited); duplicates surface
// common.ErrorConflict.
func (s *SessionService) Register(ctx context.Context, username, password string, preApproved bool) (string, error) {
	if username == "" || password == "" {
		return "", common.ErrorValidation
	}

	account := &models.Account{
		Username:         username,
		CredentialSecret: password,
		IsApproved:       preApproved,
	}
	repo := s.repomanager.Accounts(s.db)
	created, err := repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return "", common.ErrorConflict
		}
		return "", fmt.Errorf("error creating account: %w", err)
	}
	return created.ID, nil
}

// Login verifies the presented credentials and, on success, issues a session.
// Unknown usernames, wrong passwords, and unapproved accounts all map to the
// same common.ErrorUnauthorized; callers never learn which factor failed.
// The approval check runs even when the credentials are correct.
func (s *SessionService) Login(ctx context.Context, username, password string) (*models.Session, *models.AccountSummary, error) {
	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if !s.checkCredential(account.CredentialSecret, password) {
		return nil, nil, common.ErrorUnauthorized
	}
	if !account.IsApproved {
		return nil, nil, common.ErrorUnauthorized
	}

	session, err := s.issueSession(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	summary := account.Summary()
	return session, &summary, nil
}

// Refresh exchanges a valid refresh token for a new session, rotating the
// refresh token. The rotation is conditioned on the presented value still
// being current, so the old token never validates twice.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidToken
		}
		return nil, common.ErrorInternal
	}
	if !time.Now().Before(account.RefreshTokenExpiry) {
		return nil, common.ErrorInvalidToken
	}

	session, err := s.mintSession(account)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := repo.RotateRefreshToken(ctx, account.ID, refreshToken, session.RefreshToken, session.RefreshExpiry); err != nil {
		if errors.Is(err, common.ErrorInvalidToken) {
			return nil, common.ErrorInvalidToken
		}
		return nil, common.ErrorInternal
	}
	return session, nil
}

// Logout places the access token on the revocation list for the configured
// retention window, which outlives any access token's own expiry. Repeating
// a logout is harmless.
func (s *SessionService) Logout(ctx context.Context, accessToken string) error {
	repo := s.repomanager.RevokedTokens(s.db)
	if err := repo.Revoke(ctx, accessToken, time.Now().Add(s.revocationRetention)); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// Authenticate validates an access token for a request: signature, expiry,
// and then the revocation list. A revoked token is rejected no matter how
// valid it looks otherwise.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := auth.ParseAccessToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, common.ErrorInvalidToken
	}

	revoked, err := s.repomanager.RevokedTokens(s.db).IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if revoked {
		return nil, common.ErrorInvalidToken
	}
	return claims, nil
}

// Approve marks a pending account approved.
func (s *SessionService) Approve(ctx context.Context, accountID string) error {
	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if account.IsApproved {
		return common.ErrorConflict
	}
	account.IsApproved = true
	if err := repo.Update(ctx, account); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// PromoteToAdmin grants the admin role to an account.
func (s *SessionService) PromoteToAdmin(ctx context.Context, accountID string) error {
	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if account.IsAdmin {
		return common.ErrorConflict
	}
	account.IsAdmin = true
	if err := repo.Update(ctx, account); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// DeleteAccount removes a non-admin account. Admin accounts cannot be
// deleted; that guard lives here, not in the repository.
func (s *SessionService) DeleteAccount(ctx context.Context, accountID string) error {
	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if account.IsAdmin {
		return common.ErrorForbidden
	}
	if err := repo.Delete(ctx, accountID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// ListPending returns redacted summaries of accounts awaiting approval.
func (s *SessionService) ListPending(ctx context.Context) ([]models.AccountSummary, error) {
	accounts, err := s.repomanager.Accounts(s.db).ListPendingApproval(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return summaries(accounts), nil
}

// ListAll returns redacted summaries of every non-admin account.
func (s *SessionService) ListAll(ctx context.Context) ([]models.AccountSummary, error) {
	accounts, err := s.repomanager.Accounts(s.db).ListNonAdmin(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return summaries(accounts), nil
}

// EnsureBootstrapAdmin guarantees one pre-approved admin account exists.
// Running it again, including from a concurrently starting process, never
// creates a second admin: the check and the insert run in one transaction,
// and a conflicting insert of the same reserved username counts as done.
func (s *SessionService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return common.ErrorValidation
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		if _, err := repo.FindAdmin(ctx); err == nil {
			return nil
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		_, err := repo.Create(ctx, &models.Account{
			Username:         username,
			CredentialSecret: password,
			IsAdmin:          true,
			IsApproved:       true,
		})
		if errors.Is(err, common.ErrorConflict) {
			// Another process bootstrapped the same identity first.
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin error: %w", err)
	}
	return nil
}

// PurgeRevoked removes revocation entries whose retention window has passed
// and reports how many were removed.
func (s *SessionService) PurgeRevoked(ctx context.Context) (int64, error) {
	removed, err := s.repomanager.RevokedTokens(s.db).PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge error: %w", err)
	}
	return removed, nil
}

// --- helpers below ---

// checkCredential compares the presented plaintext password against the
// stored secret, which the repository has already decrypted. The comparison
// is constant-time.
func (s *SessionService) checkCredential(storedSecret, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(storedSecret), []byte(presented)) == 1
}

// mintSession builds a fresh token pair without touching the store.
func (s *SessionService) mintSession(account *models.Account) (*models.Session, error) {
	now := time.Now()
	accessToken, err := auth.GenerateAccessToken(account.Username, account.Role(), s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, err
	}
	refreshToken, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	return &models.Session{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpiry:  now.Add(s.accessTokenValidity),
		RefreshExpiry: now.Add(s.refreshTokenValidity),
	}, nil
}

// issueSession mints a token pair and persists the refresh token on the
// account.
func (s *SessionService) issueSession(ctx context.Context, account *models.Account) (*models.Session, error) {
	session, err := s.mintSession(account)
	if err != nil {
		return nil, common.ErrorInternal
	}

	account.RefreshToken = session.RefreshToken
	account.RefreshTokenExpiry = session.RefreshExpiry
	if err := s.repomanager.Accounts(s.db).Update(ctx, account); err != nil {
		return nil, common.ErrorInternal
	}
	return session, nil
}

func summaries(accounts []*models.Account) []models.AccountSummary {
	out := make([]models.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Summary())
	}
	return out
}
