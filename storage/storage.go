package storage

import (
	"context"
	"errors"
)

const (
	KeyAccessToken     = "accessToken"
	KeyRefreshToken    = "refreshToken"
	KeyTokenExpiration = "tokenExpiration"
)

// SessionKeys lists every key the session manager owns, in write order.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiration}

// ErrClosed is returned by adapters used after Close.
var ErrClosed = errors.New("storage closed")

// Storage is the persistence port used to survive process restarts.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
}
