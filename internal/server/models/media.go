package models

import "time"

// Media describes one shared photo or video. Description, Persons and Story
// are plaintext on this struct; the media repository encrypts them at rest
// with the same deterministic cipher used for account fields.
type Media struct {
	ID          string
	Description string
	// Persons lists the family members appearing in the item.
	Persons []string
	Story   string
	// StorageKey is the object-storage key of the blob.
	StorageKey string
	FileType   string
	CreatedAt  time.Time
}

// MediaPage is one page of a media listing.
type MediaPage struct {
	Items      []*Media
	TotalCount int64
	PageNumber int
	PageSize   int
}
