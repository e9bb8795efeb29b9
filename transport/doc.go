// Package transport attaches session access tokens to outgoing HTTP requests.
//
// [Bearer] asks its [TokenSource] (normally a *goSession.Manager) for a usable access
// token on every request, so expired tokens are refreshed transparently and
// concurrent requests share one refresh. Requests are never sent without a token.
package transport
