// Package cli provides the interactive Gatherer field client.
//
// It wires configuration, the local database, the REST client, the asset
// cache and the filter services behind a line-oriented REPL. On start it
// resumes a saved session or prompts for credentials, then keeps a
// background connectivity watcher running.
//
// Commands:
//   - login / logout
//   - resolve: download and verify an asset into the local cache
//   - upload: send captured files to object storage
//   - filter: edit, apply and clear the location filter
//   - cache: list or evict cached assets
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
