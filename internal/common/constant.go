// Package common contains shared constants and sentinel errors used across
// Gatherer components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on REST calls.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// FileScheme marks an asset URL that already points at local storage.
	FileScheme = "file://"

	// StorageScheme is the scheme of canonical object storage locators
	// (s3://bucket/key).
	StorageScheme = "s3"

	// ContentHashField is the form field (and object metadata key) that
	// tags uploaded objects with their content hash.
	ContentHashField = "x-amz-meta-content-hash"
)
