package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

// HydrateOutcome says what startup hydration should do next.
type HydrateOutcome int

const (
	// HydrateRefresh means a refresh token was found and a refresh should be attempted.
	HydrateRefresh HydrateOutcome = iota
	// HydrateNoToken means durable storage has no refresh token.
	HydrateNoToken
	// HydrateStale means the stored refresh token decodes as expired.
	HydrateStale
	// HydrateStorageError means durable storage could not be read.
	HydrateStorageError
)

// HydrateDeps captures hydrate flow dependencies.
type HydrateDeps struct {
	Storage          storage.Storage
	DecodeExpiration func(string) (time.Time, error)
	IsExpired        func(exp, now time.Time) bool
	Now              func() time.Time
}

type HydrateResult struct {
	Outcome      HydrateOutcome
	RefreshToken string
	Err          error
}

// RunHydrate reads the stored refresh token and decides whether a refresh is worth a
// network call. An opaque (undecodable) refresh token is left for the backend to judge.
func RunHydrate(ctx context.Context, deps HydrateDeps) HydrateResult {
	rt, ok, err := deps.Storage.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		return HydrateResult{Outcome: HydrateStorageError, Err: err}
	}
	if !ok || rt == "" {
		return HydrateResult{Outcome: HydrateNoToken}
	}

	if exp, err := deps.DecodeExpiration(rt); err == nil && deps.IsExpired(exp, deps.Now()) {
		return HydrateResult{Outcome: HydrateStale, RefreshToken: rt}
	}
	return HydrateResult{Outcome: HydrateRefresh, RefreshToken: rt}
}
