// Package common defines shared constants and sentinel errors used across
// client and server layers of Gatherer. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Asset errors.
	ErrIntegrity      = errors.New("content hash mismatch")
	ErrTransport      = errors.New("transport error")
	ErrUnsupportedURL = errors.New("unsupported storage locator")
	ErrStaleData      = errors.New("stale data")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
