// Package client contains the field client's view of the Gatherer backend.
//
// # Overview
//
// The package provides:
//  1. A transport contract (see the Client interface): Login/Logout, Ping,
//     signed upload/download targets, and the location directory.
//  2. A REST implementation (see HTTPClient) that injects the bearer token,
//     transparently refreshes an expired token once per request, and maps
//     HTTP statuses to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Non-2xx replies become *APIError, whose ErrorPayload is decoded once into
// field errors, a plain message, or unknown. APIError unwraps to
// ErrUnauthorized, ErrUnavailable, common.ErrorNotFound or
// common.ErrorValidation so callers can match with errors.Is. Dial and read
// failures wrap ErrUnavailable.
//
// # Concurrency
//
// HTTPClient is safe for concurrent use; concurrent requests that hit an
// expired token share a single refresh call.
package client
