package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/token"
	"golang.org/x/sync/singleflight"
)

// ErrRefreshTokenExpired is reported when the refresh token itself decodes as expired.
var ErrRefreshTokenExpired = errors.New("refresh token expired")

// ErrNoRefreshToken is reported when a refresh is requested without a refresh token.
var ErrNoRefreshToken = errors.New("no refresh token")

// ExchangeFunc performs the backend refresh call and returns a new access token.
type ExchangeFunc func(ctx context.Context, refreshToken string) (string, error)

// Request identifies the session generation a refresh is performed for.
type Request struct {
	RefreshToken string
	// Epoch is an opaque session generation handed back to the hooks so the owner
	// can ignore outcomes for a session that was replaced while the flight ran.
	Epoch uint64
}

// Hooks connect the coordinator to the session it refreshes.
type Hooks struct {
	// Current returns the session's access token if it is still usable. A flight
	// consults it before calling the backend so a caller that lost the race with a
	// just-completed refresh does not start a second one.
	Current func() (string, bool)
	// OnSuccess applies a refreshed access token and its expiration. An error
	// means the outcome was discarded; it does not trigger OnFailure.
	OnSuccess func(ctx context.Context, req Request, access string, exp time.Time) error
	// OnFailure applies the fail-closed policy.
	OnFailure func(ctx context.Context, req Request, err error)
}

// Outcome is the shared result of one flight.
type Outcome struct {
	Access string
	OK     bool
	// Err is the failure cause when OK is false.
	Err error
	// Shared is true when more than one caller received this outcome.
	Shared bool
	// Network is true when this flight reached the backend.
	Network bool
}

// Coordinator serializes refresh attempts.
type Coordinator struct {
	group    singleflight.Group
	exchange ExchangeFunc
	hooks    Hooks
	now      func() time.Time

	flights atomic.Uint64
}

func NewCoordinator(exchange ExchangeFunc, hooks Hooks, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		exchange: exchange,
		hooks:    hooks,
		now:      now,
	}
}

// Refresh returns a usable access token obtained from req.RefreshToken, joining any
// pending flight for the same session generation. Callers from a newer generation
// start their own flight. Refresh blocks until the flight settles or ctx is done; in
// the latter case the flight keeps running for the remaining callers.
func (c *Coordinator) Refresh(ctx context.Context, req Request) Outcome {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatUint(req.Epoch, 10), func() (interface{}, error) {
		return c.fly(flightCtx, req), nil
	})

	select {
	case res := <-ch:
		out := res.Val.(Outcome)
		out.Shared = res.Shared
		return out
	case <-ctx.Done():
		return Outcome{Err: ctx.Err()}
	}
}

func (c *Coordinator) fly(ctx context.Context, req Request) Outcome {
	if c.hooks.Current != nil {
		if access, ok := c.hooks.Current(); ok {
			return Outcome{Access: access, OK: true}
		}
	}

	if req.RefreshToken == "" {
		return c.fail(ctx, req, ErrNoRefreshToken, false)
	}
	if exp, err := token.DecodeExpiration(req.RefreshToken); err == nil && token.IsExpired(exp, c.now()) {
		return c.fail(ctx, req, ErrRefreshTokenExpired, false)
	}

	c.flights.Add(1)
	access, err := c.exchange(ctx, req.RefreshToken)
	if err != nil {
		return c.fail(ctx, req, err, true)
	}

	exp, err := token.DecodeExpiration(access)
	if err != nil {
		return c.fail(ctx, req, fmt.Errorf("refreshed access token: %w", err), true)
	}
	if token.IsExpired(exp, c.now()) {
		return c.fail(ctx, req, errors.New("refreshed access token already expired"), true)
	}

	if c.hooks.OnSuccess != nil {
		if err := c.hooks.OnSuccess(ctx, req, access, exp); err != nil {
			return Outcome{Err: err, Network: true}
		}
	}
	return Outcome{Access: access, OK: true, Network: true}
}

func (c *Coordinator) fail(ctx context.Context, req Request, err error, network bool) Outcome {
	if c.hooks.OnFailure != nil {
		c.hooks.OnFailure(ctx, req, err)
	}
	return Outcome{Err: err, Network: network}
}

// Flights reports how many backend refresh calls were made.
func (c *Coordinator) Flights() uint64 {
	return c.flights.Load()
}
