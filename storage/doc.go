// Package storage defines the durable key-value port the session manager persists
// tokens through, plus in-memory, Redis and BoltDB adapters.
//
// Only three keys are ever written: [KeyAccessToken], [KeyRefreshToken] and
// [KeyTokenExpiration]. Values are opaque strings. Adapters must treat a missing key
// as ("", false, nil), never as an error, and Remove must be idempotent.
package storage
