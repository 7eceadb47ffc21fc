// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered identity. Username and CredentialSecret are held
// in plaintext on this struct; the accounts repository encrypts them on the
// way into the database and decrypts them on the way out.
type Account struct {
	// ID is store-assigned and immutable.
	ID string
	// Username is unique across all accounts (enforced on the ciphertext,
	// which works because the cipher is deterministic).
	Username string
	// CredentialSecret is the reversibly-encrypted password. It never leaves
	// the services layer in plaintext.
	CredentialSecret string
	IsAdmin          bool
	IsApproved       bool

	// RefreshToken is empty until the first successful login. It is only
	// ever replaced, never cleared.
	RefreshToken string
	// RefreshTokenExpiry is meaningful only when RefreshToken is set.
	RefreshTokenExpiry time.Time

	CreatedAt time.Time
}

// AccountSummary is the redacted view handed to clients. It never carries
// the credential secret or the refresh token.
type AccountSummary struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	IsAdmin    bool   `json:"isAdmin"`
	IsApproved bool   `json:"isApproved"`
}

// Summary returns the redacted client-facing view of the account.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:         a.ID,
		Username:   a.Username,
		IsAdmin:    a.IsAdmin,
		IsApproved: a.IsApproved,
	}
}

// Role returns the role claim value carried in access tokens.
func (a *Account) Role() string {
	if a.IsAdmin {
		return "Admin"
	}
	return "User"
}
