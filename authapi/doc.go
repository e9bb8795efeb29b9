// Package authapi talks to the backend token endpoints over fasthttp.
//
// [Client] implements goSession.Authenticator:
//
//	POST {base}/api/accounts/token/          {"username","password"} -> {"access","refresh"}
//	POST {base}/api/accounts/token/refresh/  {"refresh"}             -> {"access"}
//
// Rejections (400, 401, 403) wrap goSession.ErrInvalidCredentials for login and
// goSession.ErrTokenRejected for refresh. Every other status and any transport
// failure wraps goSession.ErrAuthUnavailable.
//
// [Backend] serves the same endpoints in-process for development and load testing.
package authapi
