package models

import "time"

// RevokedToken is an access token invalidated before its natural expiry.
// Rows are append-only; after Expiry they only matter to the purge job.
type RevokedToken struct {
	Token  string
	Expiry time.Time
}
