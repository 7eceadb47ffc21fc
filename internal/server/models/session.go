package models

import "time"

// Session is the transient token pair produced by a successful login or
// refresh. It is handed to the caller and never persisted as a whole: the
// server keeps only the refresh token (on the account) and, after logout,
// the access token (on the revocation list).
type Session struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}
