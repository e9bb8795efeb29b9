package flows

import (
	"context"
	"errors"
	"strings"
	"time"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInput
	LoginFailureBackend
	LoginFailureMalformedToken
	LoginFailureExpiredToken
	LoginFailureMissingRefresh
)

// LoginPair is the flow-local view of the backend login response.
type LoginPair struct {
	Access  string
	Refresh string
	Email   string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Authenticate     func(ctx context.Context, username, password string) (LoginPair, error)
	DecodeExpiration func(string) (time.Time, error)
	IsExpired        func(exp, now time.Time) bool
	Now              func() time.Time
}

// LoginResult carries either the decoded token pair or failure metadata.
type LoginResult struct {
	Failure    LoginFailureKind
	Err        error
	Username   string
	Email      string
	Access     string
	Refresh    string
	Expiration time.Time
}

var (
	errEmptyCredentials = errors.New("username and password are required")
	errMissingRefresh   = errors.New("backend returned no refresh token")
)

// RunLogin authenticates against the backend and validates the returned access token
// can be decoded and is not already expired.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{Failure: LoginFailureInput, Err: errEmptyCredentials, Username: username}
	}

	pair, err := deps.Authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{Failure: LoginFailureBackend, Err: err, Username: username}
	}

	exp, err := deps.DecodeExpiration(pair.Access)
	if err != nil {
		return LoginResult{Failure: LoginFailureMalformedToken, Err: err, Username: username}
	}
	if deps.IsExpired(exp, deps.Now()) {
		return LoginResult{
			Failure:  LoginFailureExpiredToken,
			Err:      errors.New("backend issued an already expired access token"),
			Username: username,
		}
	}
	if pair.Refresh == "" {
		return LoginResult{Failure: LoginFailureMissingRefresh, Err: errMissingRefresh, Username: username}
	}

	return LoginResult{
		Username:   username,
		Email:      pair.Email,
		Access:     pair.Access,
		Refresh:    pair.Refresh,
		Expiration: exp,
	}
}
