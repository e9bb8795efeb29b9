// Package refresh coordinates access-token refreshes so that at most one backend
// refresh call is in flight per session.
//
// # Single flight
//
// Every caller that asks for a refresh while one is pending joins it and observes
// the same outcome. The shared call is detached from the first caller's
// cancellation; one caller giving up never fails the others.
//
// # Failure policy
//
// Any failure, including a refresh token the client can already see is expired,
// is reported through [Hooks.OnFailure] exactly once per flight. The coordinator
// never retries.
//
// # What this package must NOT do
//
//   - Own session state (the caller applies outcomes through [Hooks]).
//   - Import goSession or storage.
package refresh
