// Package goSession manages the client side of an authenticated session: it holds the
// access and refresh tokens, decides when the access token is stale, refreshes it
// exactly once no matter how many callers need it, and once authenticated runs the
// dependent data loads (settings first, then every collection in parallel).
//
// Manager methods are safe to call from multiple goroutines after construction
// through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config] and value
// types ([SessionState], [MetricsSnapshot]). Token decoding lives in package token,
// refresh coordination in package refresh, the load sequence in package bootstrap and
// durable persistence behind the storage.Storage port. Flow orchestration and audit
// dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Verify token signatures. Tokens are decoded only to read their expiration.
//   - Log or audit token values.
//   - Perform I/O during Build. Call [Manager.Hydrate] to restore a stored session.
//
// # Failure policy
//
// Decisions fail closed. A token whose expiration cannot be read is expired, a failed
// refresh logs the session out, and a refresh that completes after a logout or a new
// login is discarded.
package goSession
