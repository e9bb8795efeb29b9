package goSession

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/token"
)

var (
	// ErrMalformedToken is returned when a token cannot be decoded into an expiration.
	ErrMalformedToken = token.ErrMalformedToken
	// ErrLogin matches every *LoginError.
	ErrLogin = errors.New("login failed")
	// ErrRefresh matches every *RefreshError.
	ErrRefresh = errors.New("refresh failed")
	// ErrInvalidCredentials is returned by Authenticators when the backend rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenRejected is returned by Authenticators when the backend rejects a refresh token.
	ErrTokenRejected = errors.New("token rejected")
	// ErrAuthUnavailable is returned by Authenticators on transport or server failures.
	ErrAuthUnavailable = errors.New("auth backend unavailable")
	// ErrNotAuthenticated is returned by operations that need an authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionReplaced is reported when a refresh outcome arrives for a session that
	// was logged out or replaced while the refresh was in flight.
	ErrSessionReplaced = errors.New("session replaced during refresh")
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("session manager closed")
)

// LoginErrorKind classifies login failures for UI rendering.
type LoginErrorKind int

const (
	LoginInvalidInput LoginErrorKind = iota + 1
	LoginRejected
	LoginUnavailable
	LoginMalformedToken
)

func (k LoginErrorKind) String() string {
	switch k {
	case LoginInvalidInput:
		return "invalid input"
	case LoginRejected:
		return "rejected"
	case LoginUnavailable:
		return "unavailable"
	case LoginMalformedToken:
		return "malformed token"
	default:
		return "unknown"
	}
}

// LoginError is returned by Manager.Login. The session is unchanged when it is returned.
type LoginError struct {
	Kind LoginErrorKind
	Err  error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed (%s): %v", e.Kind, e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

func (e *LoginError) Is(target error) bool { return target == ErrLogin }

// RefreshError describes why a refresh failed and the session was logged out.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool { return target == ErrRefresh }
