// Package flows contains pure-function orchestrators for the session manager's
// transitions.
//
// Each flow function (RunLogin, RunHydrate, PersistTokens, ...) accepts a typed
// dependency struct and returns a result value. Flows decide; the Manager applies
// the decision to its session record under its own locks.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Mutate session state; only durable storage writes happen here.
package flows
