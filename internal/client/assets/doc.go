// Package assets makes remote, hash-verified files available locally and
// pushes newly captured files to object storage.
//
// Resolve downloads through a signed URL, checks the content hash (see
// internal/hashx) and records the verified file in the cache index. An
// indexed asset is trusted on later calls unless WithVerifyOnHit is set.
//
// Upload requests a signed POST target per file, sends the multipart form
// and reports the canonical s3://bucket/key locator with the hash that was
// computed at capture time.
//
// Failures are typed: *IntegrityError (common.ErrIntegrity),
// *TransportError (common.ErrTransport plus the underlying cause) and
// *ValidationError (common.ErrorValidation).
package assets
