// Package token decodes bearer tokens for lifecycle decisions and mints tokens for
// test backends.
//
// # Decoding
//
// [DecodeExpiration] reads the exp claim from a JWT-shaped token without verifying
// its signature. The backend owns token validity; the client only needs to know
// when to stop using a token. Anything that cannot be decoded is reported as
// [ErrMalformedToken] and must be treated as unusable.
//
// # Expiration
//
// [IsExpired] is the single expiry rule used by the session manager. An absent
// expiration is expired and there is no clock-skew grace.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import goSession or storage.
//   - Treat a decoded token as authenticated.
package token
