// Package common defines shared constants and sentinel errors used across
// famvault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Authentication never reports which factor failed.
	ErrorUnauthorized = errors.New("unauthorized")

	// Authorization (authenticated but not allowed).
	ErrorForbidden = errors.New("forbidden")

	// Token lifecycle errors (invalid, expired, revoked, rotated away).
	ErrorInvalidToken = errors.New("invalid token")
)
