package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/bootstrap"
)

// TokenPair is the backend's login response.
type TokenPair struct {
	Access  string
	Refresh string
	// Email is optional; backends that return a profile with the tokens fill it in.
	Email string
}

// Authenticator performs the backend auth calls. Implementations should wrap
// ErrInvalidCredentials, ErrTokenRejected or ErrAuthUnavailable so login failures
// can be classified.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Loader is a dependent data collection loaded after authentication.
type Loader = bootstrap.Loader

// User is the profile of the authenticated user.
type User struct {
	Username string
	Email    string
}

// SessionState is a read-only snapshot of the session.
type SessionState struct {
	Authenticated    bool
	User             User
	Error            string
	AccessExpiration time.Time
	SessionID        string
}

// session is the authoritative record. Only Manager methods touch it.
type session struct {
	id            string
	access        string
	refresh       string
	exp           time.Time
	authenticated bool
	user          User
	err           string
}

func (s session) snapshot() SessionState {
	return SessionState{
		Authenticated:    s.authenticated,
		User:             s.user,
		Error:            s.err,
		AccessExpiration: s.exp,
		SessionID:        s.id,
	}
}
